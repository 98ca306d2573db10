package core

import (
	"context"
	"fmt"
	"os"

	kvfile "fieldreport/internal/infra/devicekv/file"
	kvmemory "fieldreport/internal/infra/devicekv/memory"
	kvsqlite "fieldreport/internal/infra/devicekv/sqlite"
	docmemory "fieldreport/internal/infra/docstore/memory"
	"fieldreport/internal/infra/docstore/postgres"
)

// DocStoreDriver identifies a concrete cloud document store implementation.
type DocStoreDriver string

const (
	DocStoreMemory   DocStoreDriver = "memory"   // in-memory only (tests / ephemeral)
	DocStorePostgres DocStoreDriver = "postgres" // PostgreSQL server
)

// DeviceKVDriver identifies a concrete device-local storage implementation.
type DeviceKVDriver string

const (
	DeviceKVMemory DeviceKVDriver = "memory" // in-memory only (tests / ephemeral)
	DeviceKVFile   DeviceKVDriver = "file"   // per-key files under a root dir
	DeviceKVSQLite DeviceKVDriver = "sqlite" // embedded sqlite file
)

// OpenDocumentStore selects a cloud document store using environment
// variables. Defaults to memory when unset.
//
//	FIELDREPORT_DOCSTORE_DRIVER: memory|postgres (default memory)
//	FIELDREPORT_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenDocumentStore(ctx context.Context) (DocumentStore, error) {
	driver := os.Getenv("FIELDREPORT_DOCSTORE_DRIVER")
	if driver == "" {
		driver = string(DocStoreMemory)
	}
	switch DocStoreDriver(driver) {
	case DocStoreMemory:
		return docmemory.New(), nil
	case DocStorePostgres:
		dsn := os.Getenv("FIELDREPORT_POSTGRES_DSN")
		return postgres.NewStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown docstore driver %s", driver)
	}
}

// OpenDeviceKV selects the device-local storage backend using environment
// variables. Defaults to sqlite when unset.
//
//	FIELDREPORT_DEVICEKV_DRIVER: memory|file|sqlite (default sqlite)
//	FIELDREPORT_DEVICEKV_ROOT: directory root when driver=file (default ./devicedata)
//	FIELDREPORT_SQLITE_PATH: path to sqlite file (default ./fieldreport.db)
func OpenDeviceKV() (DeviceKV, error) {
	driver := os.Getenv("FIELDREPORT_DEVICEKV_DRIVER")
	if driver == "" {
		driver = string(DeviceKVSQLite)
	}
	switch DeviceKVDriver(driver) {
	case DeviceKVMemory:
		return kvmemory.New(), nil
	case DeviceKVFile:
		return kvfile.New(os.Getenv("FIELDREPORT_DEVICEKV_ROOT"))
	case DeviceKVSQLite:
		return kvsqlite.New(os.Getenv("FIELDREPORT_SQLITE_PATH"))
	default:
		return nil, fmt.Errorf("unknown devicekv driver %s", driver)
	}
}
