package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fieldreport/pkg/domain"
)

// fakeCloud is an in-memory DocumentStore with per-call error injection.
type fakeCloud struct {
	mu sync.Mutex

	createErr error
	updateErr error
	deleteErr error
	queryErr  error

	nextID  int
	nextTS  int64
	docs    map[string]map[string]domain.Document
	creates []string
	updates []string
	deletes []string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{nextTS: 1000, docs: make(map[string]map[string]domain.Document)}
}

func (f *fakeCloud) Create(_ context.Context, collection string, data domain.FormRecord) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Document{}, f.createErr
	}
	f.nextID++
	f.nextTS++
	doc := domain.Document{ID: fmt.Sprintf("doc-%d", f.nextID), Timestamp: f.nextTS, Data: data.Clone()}
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]domain.Document)
	}
	f.docs[collection][doc.ID] = doc
	f.creates = append(f.creates, doc.ID)
	return doc, nil
}

func (f *fakeCloud) Update(_ context.Context, collection, id string, data domain.FormRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]domain.Document)
	}
	f.nextTS++
	f.docs[collection][id] = domain.Document{ID: id, Timestamp: f.nextTS, Data: data.Clone()}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeCloud) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs[collection], id)
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeCloud) Query(_ context.Context, collection, field, value string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []domain.Document
	for _, doc := range f.docs[collection] {
		if doc.Data.StringField(field) == value {
			out = append(out, doc)
		}
	}
	return out, nil
}

// brokenKV fails every operation, standing in for a full or dead device store.
type brokenKV struct{ err error }

func (b brokenKV) GetString(string) (string, bool, error) { return "", false, b.err }
func (b brokenKV) SetString(string, string) error         { return b.err }

// fixedClock returns a clock stepping one millisecond per read so minted ids
// and local timestamps stay distinct and deterministic.
func fixedClock(startMilli int64) func() time.Time {
	var mu sync.Mutex
	cur := startMilli
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur++
		return time.UnixMilli(cur)
	}
}
