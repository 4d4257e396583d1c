package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/repository"
)

// compile-time check that *followRepo implements repository.FollowRepository
var _ repository.FollowRepository = (*followRepo)(nil)

type followRepo struct {
	q *queries
}

// Add inserts the (userID, followerID) edge. An existing edge is left alone
// and reported as false. A missing user on either side is apperror.ErrNotFound.
func (r *followRepo) Add(ctx context.Context, userID, followerID string) (bool, error) {
	result, err := r.q.exec(ctx,
		`INSERT INTO user_followers (user_id, follower_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, follower_id) DO NOTHING`,
		userID, followerID, r.q.now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("user", userID)
		}
		return false, r.q.errorf("adding follower %s to %s: %w", followerID, userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, r.q.errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *followRepo) Remove(ctx context.Context, userID, followerID string) (bool, error) {
	result, err := r.q.exec(ctx,
		`DELETE FROM user_followers WHERE user_id = ? AND follower_id = ?`,
		userID, followerID,
	)
	if err != nil {
		return false, r.q.errorf("removing follower %s from %s: %w", followerID, userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, r.q.errorf("checking rows affected: %w", err)
	}
	return n > 0, nil
}

// RecountFollowers derives follower_count from the edge set so the counter
// cannot drift from the table it summarizes.
func (r *followRepo) RecountFollowers(ctx context.Context, userID string) (int, error) {
	_, err := r.q.exec(ctx,
		`UPDATE users
		 SET follower_count = (SELECT COUNT(*) FROM user_followers WHERE user_id = ?)
		 WHERE id = ?`,
		userID, userID,
	)
	if err != nil {
		return 0, r.q.errorf("recounting followers of %s: %w", userID, err)
	}

	var count int
	if err := r.q.queryRow(ctx,
		`SELECT follower_count FROM users WHERE id = ?`, userID,
	).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("user", userID)
		}
		return 0, r.q.errorf("reading follower count of %s: %w", userID, err)
	}
	return count, nil
}

// OnlineFollowers lists the followers of userID whose online flag is set,
// oldest edge first.
func (r *followRepo) OnlineFollowers(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.query(ctx,
		`SELECT f.follower_id
		 FROM user_followers f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.user_id = ? AND u.is_online = ?
		 ORDER BY f.created_at, f.follower_id`,
		userID, true,
	)
	if err != nil {
		return nil, r.q.errorf("listing online followers of %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.q.errorf("scanning follower row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.q.errorf("iterating follower rows: %w", err)
	}
	return ids, nil
}

func (r *followRepo) Exists(ctx context.Context, userID, followerID string) (bool, error) {
	var n int
	err := r.q.queryRow(ctx,
		`SELECT COUNT(*) FROM user_followers WHERE user_id = ? AND follower_id = ?`,
		userID, followerID,
	).Scan(&n)
	if err != nil {
		return false, r.q.errorf("checking follow %s -> %s: %w", followerID, userID, err)
	}
	return n > 0, nil
}
