// Package testutil provides shared mock implementations of domain
// interfaces for use in tests across the codebase.
package testutil

import (
	"context"
	"sync"

	"sqlgate/internal/domain"
)

// MockRegistry implements domain.ServerRegistry over a fixed map.
type MockRegistry struct {
	Servers map[string]*domain.ServerConfig
}

// Get implements the interface method for testing.
func (m *MockRegistry) Get(alias string) (*domain.ServerConfig, error) {
	s, ok := m.Servers[alias]
	if !ok {
		return nil, domain.ErrNotFound("server %q is not registered", alias)
	}
	cp := *s
	return &cp, nil
}

// List implements the interface method for testing.
func (m *MockRegistry) List() []domain.ServerConfig {
	out := make([]domain.ServerConfig, 0, len(m.Servers))
	for _, s := range m.Servers {
		out = append(out, *s)
	}
	return out
}

// MockNotifier implements domain.Notifier, collecting calls.
type MockNotifier struct {
	mu    sync.Mutex
	Err   error
	Calls []NotifyCall
}

// NotifyCall is one recorded notification.
type NotifyCall struct {
	Username string
	Approved bool
	Reason   string
}

// Notify implements the interface method for testing.
func (m *MockNotifier) Notify(_ context.Context, username string, approved bool, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, NotifyCall{Username: username, Approved: approved, Reason: reason})
	return m.Err
}

// Snapshot returns a copy of the recorded calls. Use this instead of Calls
// when the notifier is driven from another goroutine.
func (m *MockNotifier) Snapshot() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotifyCall(nil), m.Calls...)
}

// MockCredentialStore implements domain.CredentialStore over a fixed map.
type MockCredentialStore struct {
	Creds map[string]domain.Credential
}

// Lookup implements the interface method for testing.
func (m *MockCredentialStore) Lookup(_ context.Context, alias string) (domain.Credential, error) {
	c, ok := m.Creds[alias]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound("no credential for server %q", alias)
	}
	return c, nil
}

// MockAdapter implements domain.EngineAdapter with scripted behavior.
type MockAdapter struct {
	ExecuteFn func(ctx context.Context, q *domain.Query, opts domain.ExecOptions) (*domain.QueryResult, error)
	Calls     int
}

// Execute implements the interface method for testing.
func (m *MockAdapter) Execute(ctx context.Context, q *domain.Query, opts domain.ExecOptions) (*domain.QueryResult, error) {
	m.Calls++
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, q, opts)
	}
	return &domain.QueryResult{Columns: []string{}, Rows: [][]interface{}{}}, nil
}

// Close implements the interface method for testing.
func (m *MockAdapter) Close() error { return nil }

// MockAdapterProvider hands out a fixed adapter per server alias.
type MockAdapterProvider struct {
	Adapters map[string]domain.EngineAdapter
	Err      error
}

// Adapter implements the gateway.AdapterProvider contract for testing.
func (m *MockAdapterProvider) Adapter(_ context.Context, server *domain.ServerConfig) (domain.EngineAdapter, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Adapters[server.Alias]
	if !ok {
		return nil, domain.ErrConnectionUnavailable("no adapter for server %q", server.Alias)
	}
	return a, nil
}
