package sqldb

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation detects unique/primary key violations from either driver
// (SQLSTATE 23505 on Postgres).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return isSQLiteConstraint(code, liteErr, "UNIQUE constraint failed")
	}
	return false
}

// isForeignKeyViolation detects references to missing rows (SQLSTATE 23503 on Postgres).
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
		return isSQLiteConstraint(code, liteErr, "FOREIGN KEY constraint failed")
	}
	return false
}

// isSQLiteConstraint covers connections that report only the primary result
// code; the constraint kind is then only visible in the message.
func isSQLiteConstraint(code int, err error, kind string) bool {
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), kind)
}
