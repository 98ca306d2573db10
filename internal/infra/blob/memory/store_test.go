package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"fieldreport/internal/blob/core"
)

func TestRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/t1/a.pdf", strings.NewReader("payload"),
		core.PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) {
		t.Fatalf("size: %d", info.Size)
	}

	got, rc, err := store.Get(ctx, "reports/t1/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || got.ContentType != "application/pdf" {
		t.Fatalf("got %q %+v", body, got)
	}
}

func TestCreateOnly(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatalf("expected conflict on existing key")
	}
}

func TestListAndDelete(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"reports/a/1", "reports/a/2", "reports/b/1"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "reports/a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("list count: %d", len(infos))
	}
	existed, err := store.Delete(ctx, "reports/a/1")
	if err != nil || !existed {
		t.Fatalf("delete: %v %v", existed, err)
	}
	if _, _, err := store.Get(ctx, "reports/a/1"); err == nil {
		t.Fatalf("expected get miss after delete")
	}
}

func TestPresignUnsupported(t *testing.T) {
	if _, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
