package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldreport/pkg/domain"
)

// stubDriver is a minimal database/sql driver that answers queries from a
// scripted queue, enough to exercise the store without a live server.
type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubResponse struct {
	columns []string
	rows    [][]driver.Value
	affect  int64
	err     error
}

type stubConn struct {
	mu    sync.Mutex
	execs []string
	queue []stubResponse
}

func (c *stubConn) push(r stubResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, r)
}

func (c *stubConn) pop() (stubResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return stubResponse{}, false
	}
	r := c.queue[0]
	c.queue = c.queue[1:]
	return r, true
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("unsupported") }
func (c *stubConn) Ping(context.Context) error          { return nil }

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	c.execs = append(c.execs, query)
	c.mu.Unlock()
	if strings.HasPrefix(strings.TrimSpace(query), "CREATE") {
		return driver.RowsAffected(0), nil
	}
	resp, ok := c.pop()
	if !ok {
		return nil, fmt.Errorf("unexpected exec: %s", query)
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return driver.RowsAffected(resp.affect), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	resp, ok := c.pop()
	if !ok {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &stubRows{columns: resp.columns, rows: resp.rows}, nil
}

type stubRows struct {
	columns []string
	rows    [][]driver.Value
	idx     int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

var stubSeq int

func newStubStore(t *testing.T) (*Store, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	stubSeq++
	name := fmt.Sprintf("fieldreport-stub-%d", stubSeq)
	sql.Register(name, &stubDriver{conn: conn})
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		return sql.Open(name, dsn)
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "postgres://stub")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreAppliesDDL(t *testing.T) {
	_, conn := newStubStore(t)
	var sawTable, sawIndex bool
	for _, q := range conn.execs {
		if strings.Contains(q, "CREATE TABLE IF NOT EXISTS documents") {
			sawTable = true
		}
		if strings.Contains(q, "CREATE INDEX IF NOT EXISTS documents_collection_tech_idx") {
			sawIndex = true
		}
	}
	if !sawTable || !sawIndex {
		t.Fatalf("expected DDL on startup, got %v", conn.execs)
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return nil, errors.New("refused")
	})
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestCreateReturnsServerIdentity(t *testing.T) {
	store, conn := newStubStore(t)
	serverTime := time.UnixMilli(1700000000000).UTC()
	conn.push(stubResponse{
		columns: []string{"id", "updated_at"},
		rows:    [][]driver.Value{{"9f6b2b3e-0000-4000-8000-000000000001", serverTime}},
	})

	doc, err := store.Create(context.Background(), "service_records",
		domain.FormRecord{"shopName": "Acme"}.WithTechID("t1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ID != "9f6b2b3e-0000-4000-8000-000000000001" {
		t.Fatalf("id: %s", doc.ID)
	}
	if doc.Timestamp != serverTime.UnixMilli() {
		t.Fatalf("timestamp: %d", doc.Timestamp)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	store, conn := newStubStore(t)
	conn.push(stubResponse{affect: 0})
	err := store.Update(context.Background(), "service_records", "missing",
		domain.FormRecord{}.WithTechID("t1"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestDeleteReportsBackendFailure(t *testing.T) {
	store, conn := newStubStore(t)
	conn.push(stubResponse{err: errors.New("connection reset")})
	if err := store.Delete(context.Background(), "service_records", "id"); err == nil {
		t.Fatalf("expected delete error")
	}
}

func TestQueryDecodesDocuments(t *testing.T) {
	store, conn := newStubStore(t)
	ts := time.UnixMilli(1700000001000).UTC()
	conn.push(stubResponse{
		columns: []string{"id", "payload", "updated_at"},
		rows: [][]driver.Value{
			{"doc-1", []byte(`{"shopName":"Acme","techId":"t1"}`), ts},
		},
	})

	docs, err := store.Query(context.Background(), "service_records", domain.FieldTechID, "t1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].Data.StringField("shopName") != "Acme" || docs[0].Timestamp != ts.UnixMilli() {
		t.Fatalf("decoded doc mismatch: %+v", docs[0])
	}
}

func TestQueryFailsAsAUnit(t *testing.T) {
	store, conn := newStubStore(t)
	conn.push(stubResponse{err: errors.New("permission denied")})
	if _, err := store.Query(context.Background(), "service_records", domain.FieldTechID, "t1"); err == nil {
		t.Fatalf("expected query error")
	}
}
