package memory

import "testing"

func TestRoundTrip(t *testing.T) {
	s := New()
	if _, ok, err := s.GetString("k"); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	if err := s.SetString("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetString("k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.GetString("k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("get: v=%s ok=%v err=%v", v, ok, err)
	}
}
