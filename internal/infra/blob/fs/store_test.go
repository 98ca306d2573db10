package fs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"fieldreport/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/t1/Acme-1.pdf", bytes.NewReader([]byte("%PDF body")),
		core.PutOptions{ContentType: "application/pdf", Metadata: map[string]string{"tech_id": "t1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("%PDF body")) || info.ETag == "" {
		t.Fatalf("info: %+v", info)
	}

	if _, err := store.Put(ctx, "reports/t1/Acme-1.pdf", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only conflict")
	}

	got, rc, err := store.Get(ctx, "reports/t1/Acme-1.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if string(body) != "%PDF body" {
		t.Fatalf("body: %q", body)
	}
	if got.ContentType != "application/pdf" || got.Metadata["tech_id"] != "t1" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestDeleteAndList(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"reports/t1/a.pdf", "reports/t2/b.pdf"} {
		if _, err := store.Put(ctx, key, strings.NewReader("data"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "reports/t1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "reports/t1/a.pdf" {
		t.Fatalf("list result: %+v", infos)
	}

	existed, err := store.Delete(ctx, "reports/t1/a.pdf")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "reports/t1/a.pdf")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestKeySanitization(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestPresignUnsupported(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
