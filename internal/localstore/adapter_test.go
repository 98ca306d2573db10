package localstore

import (
	"errors"
	"testing"

	"fieldreport/pkg/domain"
)

type fakeKV struct {
	values map[string]string
	getErr error
	setErr error
}

func newFakeKV() *fakeKV { return &fakeKV{values: make(map[string]string)} }

func (f *fakeKV) GetString(key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) SetString(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func entry(id string, ts int64, tech string) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:        id,
		Timestamp: ts,
		Data:      domain.FormRecord{domain.FieldShopName: "Acme"}.WithTechID(tech),
	}
}

func TestUpsertAppendsThenReplaces(t *testing.T) {
	kv := newFakeKV()
	a := New(kv, nil)

	if err := a.Upsert("service_records", entry("local-1", 10, "t1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := a.Upsert("service_records", entry("doc-2", 20, "t1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated := entry("local-1", 30, "t1")
	updated.Data[domain.FieldShopName] = "Acme Revised"
	if err := a.Upsert("service_records", updated); err != nil {
		t.Fatalf("upsert replace: %v", err)
	}

	entries, err := a.List("service_records")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ID == "local-1" && e.Data.StringField(domain.FieldShopName) != "Acme Revised" {
			t.Fatalf("replacement not applied: %+v", e)
		}
	}
}

func TestListByTechFilters(t *testing.T) {
	a := New(newFakeKV(), nil)
	_ = a.Upsert("pm_records", entry("a", 1, "t1"))
	_ = a.Upsert("pm_records", entry("b", 2, "t2"))
	_ = a.Upsert("pm_records", entry("c", 3, "t1"))

	entries, err := a.ListByTech("pm_records", "t1")
	if err != nil {
		t.Fatalf("list by tech: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for t1, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	a := New(newFakeKV(), nil)
	_ = a.Upsert("service_records", entry("a", 1, "t1"))

	existed, err := a.Delete("service_records", "a")
	if err != nil || !existed {
		t.Fatalf("delete existing: existed=%v err=%v", existed, err)
	}
	existed, err = a.Delete("service_records", "a")
	if err != nil || existed {
		t.Fatalf("delete missing: existed=%v err=%v", existed, err)
	}
	entries, _ := a.List("service_records")
	if len(entries) != 0 {
		t.Fatalf("expected empty collection, got %d", len(entries))
	}
}

func TestCorruptCollectionTreatedAsEmpty(t *testing.T) {
	kv := newFakeKV()
	kv.values["service_records"] = "{not json"
	a := New(kv, nil)

	entries, err := a.List("service_records")
	if err != nil {
		t.Fatalf("corrupt collection must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("corrupt collection must read as empty")
	}

	// A subsequent upsert recovers the collection.
	if err := a.Upsert("service_records", entry("a", 1, "t1")); err != nil {
		t.Fatalf("upsert after corruption: %v", err)
	}
	entries, _ = a.List("service_records")
	if len(entries) != 1 {
		t.Fatalf("expected recovered collection")
	}
}

func TestStorageFailuresAreHard(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("storage unavailable")
	a := New(kv, nil)

	if _, err := a.List("service_records"); err == nil {
		t.Fatalf("expected hard error on read failure")
	}

	kv.getErr = nil
	kv.setErr = errors.New("quota exceeded")
	err := a.Upsert("service_records", entry("a", 1, "t1"))
	var lse domain.LocalStoreError
	if !errors.As(err, &lse) {
		t.Fatalf("expected LocalStoreError, got %v", err)
	}
}
