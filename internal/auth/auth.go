// Package auth establishes the technician identity a device operates under.
// Sign-in is anonymous: an identity provider mints an opaque technician id,
// and the id is pinned in device storage so the same device keeps the same
// history across restarts. When the provider is unreachable the device falls
// back to a locally minted id, keeping the app usable offline.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fieldreport/pkg/domain"
)

// identityKey is the device-storage key pinning the signed-in identity.
const identityKey = "auth_identity"

// Identity is the technician identity all records are attributed to.
type Identity struct {
	TechID string `json:"techId"`
	// Local marks an identity minted on-device while the provider was
	// unreachable.
	Local bool `json:"local"`
}

// Provider mints anonymous identities. Implementations may call out to an
// identity service; the default provider mints ids in-process.
type Provider interface {
	SignInAnonymously(ctx context.Context) (Identity, error)
}

// AnonymousProvider mints a fresh anonymous identity with no external calls.
type AnonymousProvider struct{}

// SignInAnonymously implements Provider.
func (AnonymousProvider) SignInAnonymously(context.Context) (Identity, error) {
	return Identity{TechID: uuid.NewString()}, nil
}

var _ Provider = AnonymousProvider{}

// Manager pins identities in device storage and degrades to a local identity
// when the provider fails.
type Manager struct {
	provider Provider
	kv       domain.DeviceKV
	logger   *slog.Logger
}

// NewManager constructs a Manager over the provider and device storage.
func NewManager(provider Provider, kv domain.DeviceKV, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, kv: kv, logger: logger}
}

// SignIn returns the device's technician identity.
//
// A previously pinned identity is reused as-is. Otherwise the provider is
// asked for a fresh anonymous identity; if it fails, a local identity is
// minted instead so the device stays usable. Either way the result is pinned.
// Only a device-storage failure is returned as an error.
func (m *Manager) SignIn(ctx context.Context) (Identity, error) {
	if id, ok, err := m.load(); err != nil {
		return Identity{}, err
	} else if ok {
		return id, nil
	}

	id, err := m.provider.SignInAnonymously(ctx)
	if err != nil {
		m.logger.Warn("anonymous sign-in unavailable, minting local identity", "error", err)
		id = Identity{TechID: domain.LocalDraftPrefix + uuid.NewString(), Local: true}
	}
	if err := m.pin(id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// SignOut discards the pinned identity. The next SignIn starts fresh.
func (m *Manager) SignOut() error {
	if err := m.kv.SetString(identityKey, ""); err != nil {
		return domain.LocalStoreError{Op: "clear identity", Err: err}
	}
	return nil
}

func (m *Manager) load() (Identity, bool, error) {
	raw, ok, err := m.kv.GetString(identityKey)
	if err != nil {
		return Identity{}, false, domain.LocalStoreError{Op: "load identity", Err: err}
	}
	if !ok || raw == "" {
		return Identity{}, false, nil
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		m.logger.Warn("pinned identity unreadable, discarding", "error", err)
		return Identity{}, false, nil
	}
	if id.TechID == "" {
		return Identity{}, false, nil
	}
	return id, true, nil
}

func (m *Manager) pin(id Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := m.kv.SetString(identityKey, string(raw)); err != nil {
		return domain.LocalStoreError{Op: "pin identity", Err: err}
	}
	return nil
}
