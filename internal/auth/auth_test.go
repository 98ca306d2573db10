package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	memorykv "fieldreport/internal/infra/devicekv/memory"
	"fieldreport/pkg/domain"
)

type failingProvider struct{ err error }

func (f failingProvider) SignInAnonymously(context.Context) (Identity, error) {
	return Identity{}, f.err
}

func TestSignInPinsIdentity(t *testing.T) {
	kv := memorykv.New()
	m := NewManager(AnonymousProvider{}, kv, slog.Default())
	ctx := context.Background()

	first, err := m.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if first.TechID == "" || first.Local {
		t.Fatalf("identity = %+v", first)
	}

	second, err := m.SignIn(ctx)
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second != first {
		t.Fatalf("identity not stable: %+v vs %+v", first, second)
	}
}

func TestSignInProviderFailureMintsLocal(t *testing.T) {
	kv := memorykv.New()
	m := NewManager(failingProvider{err: errors.New("offline")}, kv, slog.Default())
	ctx := context.Background()

	id, err := m.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !id.Local || !strings.HasPrefix(id.TechID, domain.LocalDraftPrefix) {
		t.Fatalf("expected local identity, got %+v", id)
	}

	// The local identity is pinned like any other.
	again, err := m.SignIn(ctx)
	if err != nil || again != id {
		t.Fatalf("pinned local identity: %+v err=%v", again, err)
	}
}

func TestSignOutUnpins(t *testing.T) {
	kv := memorykv.New()
	m := NewManager(AnonymousProvider{}, kv, slog.Default())
	ctx := context.Background()

	first, err := m.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := m.SignOut(); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	second, err := m.SignIn(ctx)
	if err != nil {
		t.Fatalf("re-sign in: %v", err)
	}
	if second.TechID == first.TechID {
		t.Fatalf("sign out did not rotate the identity")
	}
}

func TestCorruptPinnedIdentityDiscarded(t *testing.T) {
	kv := memorykv.New()
	if err := kv.SetString("auth_identity", "{nope"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := NewManager(AnonymousProvider{}, kv, slog.Default())
	id, err := m.SignIn(context.Background())
	if err != nil || id.TechID == "" {
		t.Fatalf("identity = %+v err=%v", id, err)
	}
}

type brokenKV struct{ err error }

func (b brokenKV) GetString(string) (string, bool, error) { return "", false, b.err }
func (b brokenKV) SetString(string, string) error         { return b.err }

func TestDeviceStorageFailureIsHard(t *testing.T) {
	m := NewManager(AnonymousProvider{}, brokenKV{err: errors.New("io error")}, slog.Default())
	_, err := m.SignIn(context.Background())
	var lsErr domain.LocalStoreError
	if !errors.As(err, &lsErr) {
		t.Fatalf("want LocalStoreError, got %v", err)
	}
}
