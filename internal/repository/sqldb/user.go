package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
)

// compile-time check that *userRepo implements repository.UserRepository
var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	q *queries
}

// Create inserts a user. ID and CreatedAt are assigned here when empty.
// A taken username is reported as apperror.ErrConflict.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.q.now()

	_, err := r.q.exec(ctx,
		`INSERT INTO users (id, username, is_online, follower_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.IsOnline,
		user.FollowerCount,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return r.q.errorf("inserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no user exists with that ID.
func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.q.queryRow(ctx,
		`SELECT id, username, is_online, follower_count, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.IsOnline, &u.FollowerCount, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, r.q.errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

// List returns every user ordered by username.
func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, username, is_online, follower_count, created_at
		 FROM users ORDER BY username`,
	)
	if err != nil {
		return nil, r.q.errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsOnline, &u.FollowerCount, &u.CreatedAt); err != nil {
			return nil, r.q.errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, r.q.errorf("iterating user rows: %w", err)
	}
	return users, nil
}

// SetOnline returns apperror.ErrNotFound for unknown users.
func (r *userRepo) SetOnline(ctx context.Context, id string, online bool) error {
	result, err := r.q.exec(ctx,
		`UPDATE users SET is_online = ? WHERE id = ?`,
		online, id,
	)
	if err != nil {
		return r.q.errorf("setting online flag for %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return r.q.errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (r *userRepo) IsOnline(ctx context.Context, id string) (bool, error) {
	var online bool
	err := r.q.queryRow(ctx, `SELECT is_online FROM users WHERE id = ?`, id).Scan(&online)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, r.q.errorf("reading online flag for %s: %w", id, err)
	}
	return online, nil
}

// LockForUpdate holds the user's row until the surrounding transaction ends.
// SQLite has no row locks; there the single writer connection already
// serializes transactions and the call only checks that the user exists.
func (r *userRepo) LockForUpdate(ctx context.Context, id string) error {
	query := `SELECT id FROM users WHERE id = ?`
	if r.q.dialect == dialectPostgres {
		query += ` FOR UPDATE`
	}

	var got string
	if err := r.q.queryRow(ctx, query, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", id)
		}
		return r.q.errorf("locking user %s: %w", id, err)
	}
	return nil
}
