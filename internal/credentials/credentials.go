// Package credentials resolves backend database credentials by server
// alias. The gateway treats credentials as opaque; secret management
// itself (rotation, vault backends) lives outside this service.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"sqlgate/internal/domain"
)

// StaticStore serves credentials loaded from configuration. Thread-safe;
// Set allows admin reload without restart.
type StaticStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewStaticStore creates a store over a credential map keyed by
// credential ref.
func NewStaticStore(creds map[string]domain.Credential) *StaticStore {
	if creds == nil {
		creds = make(map[string]domain.Credential)
	}
	return &StaticStore{creds: creds}
}

func (s *StaticStore) Lookup(_ context.Context, ref string) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[ref]
	if !ok {
		return domain.Credential{}, fmt.Errorf("no credential for ref %q", ref)
	}
	return cred, nil
}

// Set adds or replaces a credential.
func (s *StaticStore) Set(ref string, cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[ref] = cred
}

// EnvStore resolves credentials from environment variables:
// SQLGATE_CRED_{REF}_USER and SQLGATE_CRED_{REF}_PASSWORD, with the ref
// upper-cased and dashes mapped to underscores.
type EnvStore struct{}

func (EnvStore) Lookup(_ context.Context, ref string) (domain.Credential, error) {
	key := strings.ToUpper(strings.ReplaceAll(ref, "-", "_"))
	user := os.Getenv("SQLGATE_CRED_" + key + "_USER")
	pass := os.Getenv("SQLGATE_CRED_" + key + "_PASSWORD")
	if user == "" {
		return domain.Credential{}, fmt.Errorf("credential env vars not set for ref %q", ref)
	}
	return domain.Credential{Username: user, Password: pass}, nil
}

// ServerStore adapts a ref-keyed store to alias-based lookups using the
// server registry's credential refs.
type ServerStore struct {
	registry domain.ServerRegistry
	backing  domain.CredentialStore
}

func NewServerStore(registry domain.ServerRegistry, backing domain.CredentialStore) *ServerStore {
	return &ServerStore{registry: registry, backing: backing}
}

func (s *ServerStore) Lookup(ctx context.Context, alias string) (domain.Credential, error) {
	server, err := s.registry.Get(alias)
	if err != nil {
		return domain.Credential{}, err
	}
	ref := server.CredentialRef
	if ref == "" {
		ref = alias
	}
	return s.backing.Lookup(ctx, ref)
}

// Chain tries each store in order and returns the first hit. Used to
// layer config-file credentials over environment fallbacks.
type Chain []domain.CredentialStore

func (c Chain) Lookup(ctx context.Context, ref string) (domain.Credential, error) {
	var lastErr error
	for _, store := range c {
		cred, err := store.Lookup(ctx, ref)
		if err == nil {
			return cred, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no credential stores configured")
	}
	return domain.Credential{}, lastErr
}
