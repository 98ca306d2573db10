// Package memory implements an in-memory DocumentStore for tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldreport/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// Store keeps documents per collection in process memory. Ids and write
// timestamps are minted by the store, mirroring the server-assigned semantics
// of the real cloud backend.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Document
	now         func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]domain.Document), now: time.Now}
}

// WithClock overrides the timestamp source. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create mints an id and server timestamp for the document.
func (s *Store) Create(_ context.Context, collection string, data domain.FormRecord) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]domain.Document)
		s.collections[collection] = coll
	}
	doc := domain.Document{
		ID:        uuid.NewString(),
		Timestamp: s.now().UnixMilli(),
		Data:      data.Clone(),
	}
	coll[doc.ID] = doc
	return doc, nil
}

// Update replaces the payload of an existing document and refreshes its
// server timestamp.
func (s *Store) Update(_ context.Context, collection, id string, data domain.FormRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	doc, ok := coll[id]
	if !ok {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	doc.Data = data.Clone()
	doc.Timestamp = s.now().UnixMilli()
	coll[id] = doc
	return nil
}

// Delete removes the document by id.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	if _, ok := coll[id]; !ok {
		return fmt.Errorf("document %s/%s not found", collection, id)
	}
	delete(coll, id)
	return nil
}

// Query returns a snapshot of documents whose field equals value, ordered by
// id for determinism.
func (s *Store) Query(_ context.Context, collection, field, value string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, doc := range s.collections[collection] {
		if doc.Data.StringField(field) == value {
			cp := doc
			cp.Data = doc.Data.Clone()
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
