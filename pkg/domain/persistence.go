package domain

import "context"

// Document is a record held by the cloud document store. Timestamp is the
// server-assigned write time in unix milliseconds.
type Document struct {
	ID        string
	Timestamp int64
	Data      FormRecord
}

// DocumentStore is the cloud document store collaborator: create assigns an
// id and a server timestamp, update/delete address documents by id, and Query
// returns a snapshot of all documents in a collection whose field equals the
// given value. Implementations live under internal/infra/docstore.
type DocumentStore interface {
	Create(ctx context.Context, collection string, data FormRecord) (Document, error)
	Update(ctx context.Context, collection, id string, data FormRecord) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection, field, value string) ([]Document, error)
}

// DeviceKV is the local persistence collaborator: synchronous string storage
// scoped to one device. The core stores one JSON-serialized array of records
// per logical collection name.
type DeviceKV interface {
	// GetString returns the stored value and whether the key exists.
	GetString(key string) (string, bool, error)
	SetString(key, value string) error
}
