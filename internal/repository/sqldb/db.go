// Package sqldb implements the repository interfaces on database/sql.
//
// One set of queries serves two backends:
//   - SQLite through modernc.org/sqlite (pure Go, the default, also used by tests)
//   - PostgreSQL through the pgx stdlib driver, with goose migrations
//
// Queries are written with "?" placeholders and rebound to "$n" for Postgres.
// Every repository is a thin view over a dbtx, so the same code runs against
// the pool or inside a transaction opened by WithTx.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/notification-hub/internal/repository"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// DB owns the connection pool and hands out repositories bound to it.
type DB struct {
	*queries
	conn *sql.DB
}

func newDB(conn *sql.DB, d dialect) *DB {
	return &DB{
		queries: &queries{db: conn, dialect: d, now: utcNow},
		conn:    conn,
	}
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: pinging database: %w", db.dialect, err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back on error or panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: beginning transaction: %w", db.dialect, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&queries{db: tx, dialect: db.dialect, now: db.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("%s: rolling back: %w", db.dialect, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: committing transaction: %w", db.dialect, err)
	}
	return nil
}

// queries implements repository.Tx over a pool or a transaction.
type queries struct {
	db      dbtx
	dialect dialect
	now     func() time.Time
}

func (q *queries) Users() repository.UserRepository {
	return &userRepo{q: q}
}

func (q *queries) Follows() repository.FollowRepository {
	return &followRepo{q: q}
}

func (q *queries) Notifications() repository.NotificationRepository {
	return &notificationRepo{q: q}
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// rebind rewrites "?" placeholders to "$1", "$2", ... for Postgres.
func (q *queries) rebind(query string) string {
	if q.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (q *queries) errorf(format string, args ...any) error {
	return fmt.Errorf(q.dialect.String()+": "+format, args...)
}

// utcNow truncates to milliseconds so timestamps round-trip through both
// drivers unchanged.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
