package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"sqlgate/internal/domain"
)

// Manager holds one adapter per server alias, created lazily on first use.
// The credential is fetched from the store once per adapter establishment.
type Manager struct {
	mu       sync.Mutex
	adapters map[string]*Adapter
	creds    domain.CredentialStore
	opts     PoolOptions
	logger   *slog.Logger
}

// NewManager creates an empty adapter manager.
func NewManager(creds domain.CredentialStore, opts PoolOptions, logger *slog.Logger) *Manager {
	return &Manager{
		adapters: make(map[string]*Adapter),
		creds:    creds,
		opts:     opts,
		logger:   logger,
	}
}

// Adapter returns the adapter for the server, establishing it on first use.
func (m *Manager) Adapter(ctx context.Context, server *domain.ServerConfig) (domain.EngineAdapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.adapters[server.Alias]; ok {
		return a, nil
	}

	cred, err := m.creds.Lookup(ctx, server.Alias)
	if err != nil {
		return nil, domain.ErrConnectionUnavailable("credential for server %q: %v", server.Alias, err)
	}

	a, err := NewAdapter(server, cred, m.opts, m.logger.With("server", server.Alias))
	if err != nil {
		return nil, err
	}
	m.adapters[server.Alias] = a
	m.logger.Info("backend pool established",
		"server", server.Alias, "engine", string(server.Engine),
		"max_open", m.opts.MaxOpenConns)
	return a, nil
}

// Stats returns the pool counters for every established adapter, keyed by
// server alias. Used by the periodic metrics export.
func (m *Manager) Stats() map[string]sql.DBStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]sql.DBStats, len(m.adapters))
	for alias, a := range m.adapters {
		stats[alias] = a.Stats()
	}
	return stats
}

// Close releases every established pool.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for alias, a := range m.adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.adapters, alias)
	}
	return firstErr
}
