// Package engine executes queries against backend database servers through
// a uniform adapter over database/sql.
//
// One adapter per configured server owns a bounded connection pool. All
// backend failures are translated into the domain error taxonomy; driver
// error types never cross the package boundary.
package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	// Backend drivers, selected by ServerConfig.Engine.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"sqlgate/internal/domain"
)

// PoolOptions bound one server's connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	// AcquireTimeout caps how long a request waits for a pooled connection
	// before failing with ConnectionUnavailable.
	AcquireTimeout time.Duration
}

// DefaultPoolOptions returns the pool bounds used when config doesn't
// override them.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxIdleTime: 5 * time.Minute,
		AcquireTimeout:  5 * time.Second,
	}
}

// Adapter executes queries against one backend server.
type Adapter struct {
	server *domain.ServerConfig
	db     *sql.DB
	opts   PoolOptions
	logger *slog.Logger
}

// NewAdapter opens the bounded pool for the server using the credential.
// The credential is fetched once per adapter; the pool re-dials with it as
// connections are recreated.
func NewAdapter(cfg *domain.ServerConfig, cred domain.Credential, opts PoolOptions, logger *slog.Logger) (*Adapter, error) {
	d, err := dialectFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	pool, err := sql.Open(d.driverName, d.buildDSN(cfg, cred))
	if err != nil {
		return nil, domain.ErrConnectionUnavailable("open %s pool for %q: %v", cfg.Engine, cfg.Alias, err)
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	return &Adapter{server: cfg, db: pool, opts: opts, logger: logger}, nil
}

// Execute runs the query on an exclusively checked-out connection inside a
// transaction. Read queries are bounded by opts.MaxRows with the Truncated
// flag set when more rows were available; other types commit and report
// the affected row count.
func (a *Adapter) Execute(ctx context.Context, q *domain.Query, opts domain.ExecOptions) (*domain.QueryResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, a.opts.AcquireTimeout)
	defer cancelAcquire()
	conn, err := a.db.Conn(acquireCtx)
	if err != nil {
		return nil, domain.ErrConnectionUnavailable("server %q: no connection available: %v", a.server.Alias, err)
	}
	defer conn.Close() //nolint:errcheck

	start := time.Now()
	result, err := a.executeOn(ctx, conn, q, opts)
	if err != nil {
		// Any doubt about connection state after a failure: discard it
		// rather than return it to the pool.
		a.discard(conn)
		return nil, a.translate(ctx, err)
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (a *Adapter) executeOn(ctx context.Context, conn *sql.Conn, q *domain.Query, opts domain.ExecOptions) (*domain.QueryResult, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var result *domain.QueryResult
	if q.Type == domain.QueryTypeRead {
		result, err = queryRows(ctx, tx, q.RawText, opts)
	} else {
		result, err = execStatement(ctx, tx, q.RawText, opts.Params)
	}
	if err != nil {
		// Best-effort rollback; the translated error reaches the caller.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			a.logger.Warn("rollback failed", "server", a.server.Alias, "error", rbErr)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryRows(ctx context.Context, tx *sql.Tx, sqlText string, opts domain.ExecOptions) (*domain.QueryResult, error) {
	rows, err := tx.QueryContext(ctx, sqlText, opts.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = 1000
	}

	result := &domain.QueryResult{Columns: columns}
	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = int64(len(result.Rows))
	return result, nil
}

func execStatement(ctx context.Context, tx *sql.Tx, sqlText string, params []interface{}) (*domain.QueryResult, error) {
	res, err := tx.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return nil, err
	}
	// Some drivers cannot report affected rows for DDL; treat that as zero.
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &domain.QueryResult{RowCount: affected}, nil
}

// normalizeRow converts driver-specific values into the portable result
// forms: byte slices become strings, everything else passes through.
func normalizeRow(values []interface{}) []interface{} {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}

// translate maps a backend failure to the domain taxonomy. Timeouts are
// detected via the context; everything else becomes a normalized
// ExecutionError carrying only the backend message.
func (a *Adapter) translate(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout("query timed out on server %q", a.server.Alias)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return domain.ErrConnectionUnavailable("server %q: connection lost: %v", a.server.Alias, err)
	}
	return domain.ErrExecution("%v", err)
}

// discard marks the checked-out connection bad so the pool recreates it
// instead of reusing a connection in an unknown state.
func (a *Adapter) discard(conn *sql.Conn) {
	_ = conn.Raw(func(interface{}) error { return driver.ErrBadConn })
}

// Stats exposes pool counters for metrics export.
func (a *Adapter) Stats() sql.DBStats { return a.db.Stats() }

// Server returns the adapter's server configuration.
func (a *Adapter) Server() *domain.ServerConfig { return a.server }

// Close releases the pool.
func (a *Adapter) Close() error { return a.db.Close() }
