package sqlite

import (
	"path/filepath"
	"testing"
)

func TestRoundTripAndUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok, err := s.GetString("pm_records"); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	if err := s.SetString("pm_records", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetString("pm_records", `[{"id":"x"}]`); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, ok, err := s.GetString("pm_records")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if v != `[{"id":"x"}]` {
		t.Fatalf("value mismatch: %s", v)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetString("technicians", `[{"techId":"t1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	v, ok, err := reopened.GetString("technicians")
	if err != nil || !ok || v != `[{"techId":"t1"}]` {
		t.Fatalf("reopen get: v=%s ok=%v err=%v", v, ok, err)
	}
}
