// Package localstore implements the device-local record store adapter: one
// JSON-serialized array of history entries per logical collection name, kept
// in a DeviceKV collaborator.
package localstore

import (
	"encoding/json"
	"log/slog"
	"sync"

	"fieldreport/pkg/domain"
)

// Adapter reads and writes whole collections. Every upsert/delete is a
// read-modify-write of the full array, so the adapter serializes writers; the
// UI-facing session model is single-threaded, but the server may host many
// sessions over one device store.
type Adapter struct {
	kv     domain.DeviceKV
	mu     sync.Mutex
	logger *slog.Logger
}

// New constructs an Adapter over the given device store. A nil logger falls
// back to slog.Default().
func New(kv domain.DeviceKV, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{kv: kv, logger: logger}
}

// List returns all entries in the collection. A missing key is an empty
// collection. Corrupt JSON is treated as an empty collection with a warning;
// a failing device store is a hard LocalStoreError.
func (a *Adapter) List(collection string) ([]domain.HistoryEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(collection)
}

// ListByTech returns the collection filtered to entries owned by techID.
func (a *Adapter) ListByTech(collection, techID string) ([]domain.HistoryEntry, error) {
	entries, err := a.List(collection)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, entry := range entries {
		if entry.Data.TechID() == techID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Upsert writes the entry into the collection, replacing any entry with the
// same id. At most one record exists per logical id.
func (a *Adapter) Upsert(collection string, entry domain.HistoryEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries, err := a.load(collection)
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return a.store(collection, entries)
}

// Delete removes the entry with the given id, reporting whether it existed.
func (a *Adapter) Delete(collection, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries, err := a.load(collection)
	if err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return true, a.store(collection, entries)
		}
	}
	return false, nil
}

func (a *Adapter) load(collection string) ([]domain.HistoryEntry, error) {
	raw, ok, err := a.kv.GetString(collection)
	if err != nil {
		return nil, domain.LocalStoreError{Op: "read " + collection, Err: err}
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []domain.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		a.logger.Warn("local collection corrupt, treating as empty",
			"collection", collection, "error", err)
		return nil, nil
	}
	return entries, nil
}

func (a *Adapter) store(collection string, entries []domain.HistoryEntry) error {
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return domain.LocalStoreError{Op: "encode " + collection, Err: err}
	}
	if err := a.kv.SetString(collection, string(raw)); err != nil {
		return domain.LocalStoreError{Op: "write " + collection, Err: err}
	}
	return nil
}
