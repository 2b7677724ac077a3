// Package db provides the SQLite metastore: connectivity, hardening, and
// embedded schema migrations for the gateway's persisted state (whitelist
// entries, pending approvals, audit log).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver Open relies on
)

// SQLite DSN parameters for production hardening.
const (
	busyTimeoutMs = "5000"
	synchronous   = "NORMAL"
	journalMode   = "WAL"
)

// Metastore bundles the write and read pools for one SQLite file.
//
// The write pool is a single connection with _txlock=immediate so writes
// serialize without SQLITE_BUSY churn; the read pool carries several
// connections for concurrent request handling. Both use WAL with a 5s busy
// timeout.
type Metastore struct {
	Write *sql.DB
	Read  *sql.DB
}

// Open opens the metastore at path and verifies both pools. readMaxOpen
// controls the read pool size (0 defaults to 4).
func Open(path string, readMaxOpen int) (*Metastore, error) {
	writeDB, err := open(path, true, 1)
	if err != nil {
		return nil, fmt.Errorf("open metastore write pool: %w", err)
	}

	if readMaxOpen <= 0 {
		readMaxOpen = 4
	}
	readDB, err := open(path, false, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("open metastore read pool: %w", err)
	}

	return &Metastore{Write: writeDB, Read: readDB}, nil
}

// Close releases both pools.
func (m *Metastore) Close() error {
	rerr := m.Read.Close()
	if werr := m.Write.Close(); werr != nil {
		return werr
	}
	return rerr
}

func open(path string, write bool, maxOpen int) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMs)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	if write {
		params.Set("_txlock", "immediate")
	}

	pool, err := sql.Open("sqlite3", path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}
