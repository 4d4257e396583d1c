package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/xid"
	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
)

// compile-time check that *notificationRepo implements repository.NotificationRepository
var _ repository.NotificationRepository = (*notificationRepo)(nil)

type notificationRepo struct {
	q *queries
}

const insertNotification = `INSERT INTO notifications (id, recipient_id, type, message, seen, actor_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// Append stores a fresh unseen record for recipientID.
// Returns apperror.ErrNotFound if the recipient does not exist.
func (r *notificationRepo) Append(ctx context.Context, recipientID string, n repository.NewNotification) (*model.Notification, error) {
	if err := r.requireUser(ctx, recipientID); err != nil {
		return nil, err
	}

	rec := r.newRecord(n)
	rec.RecipientID = recipientID
	if err := r.insert(ctx, recipientID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendMany writes one row per recipient, all sharing the same ID and
// timestamp. Recipients are expected to exist; a missing one fails the call.
func (r *notificationRepo) AppendMany(ctx context.Context, recipientIDs []string, n repository.NewNotification) (*model.Notification, error) {
	rec := r.newRecord(n)
	for _, id := range recipientIDs {
		if err := r.insert(ctx, id, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// List returns the recipient's records, newest first. Records created in the
// same instant come back in reverse insertion order.
func (r *notificationRepo) List(ctx context.Context, recipientID string) ([]model.Notification, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, recipient_id, type, message, seen, actor_id, created_at
		 FROM notifications
		 WHERE recipient_id = ?
		 ORDER BY created_at DESC, seq DESC`,
		recipientID,
	)
	if err != nil {
		return nil, r.q.errorf("listing notifications for %s: %w", recipientID, err)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Message, &n.Seen, &n.ActorID, &n.CreatedAt); err != nil {
			return nil, r.q.errorf("scanning notification row: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, r.q.errorf("iterating notification rows: %w", err)
	}
	return list, nil
}

// MarkSeen flags one record as seen. Unknown IDs are ignored.
func (r *notificationRepo) MarkSeen(ctx context.Context, recipientID, notificationID string) error {
	_, err := r.q.exec(ctx,
		`UPDATE notifications SET seen = ? WHERE recipient_id = ? AND id = ?`,
		true, recipientID, notificationID,
	)
	if err != nil {
		return r.q.errorf("marking notification %s seen: %w", notificationID, err)
	}
	return nil
}

func (r *notificationRepo) Clear(ctx context.Context, recipientID string) error {
	_, err := r.q.exec(ctx, `DELETE FROM notifications WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return r.q.errorf("clearing notifications for %s: %w", recipientID, err)
	}
	return nil
}

// Trim keeps the newest keep records of recipientID. keep <= 0 is a no-op.
func (r *notificationRepo) Trim(ctx context.Context, recipientID string, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := r.q.exec(ctx,
		`DELETE FROM notifications
		 WHERE recipient_id = ?
		   AND seq NOT IN (
		     SELECT seq FROM notifications
		     WHERE recipient_id = ?
		     ORDER BY created_at DESC, seq DESC
		     LIMIT ?
		   )`,
		recipientID, recipientID, keep,
	)
	if err != nil {
		return r.q.errorf("trimming notifications for %s: %w", recipientID, err)
	}
	return nil
}

func (r *notificationRepo) newRecord(n repository.NewNotification) *model.Notification {
	return &model.Notification{
		ID:        xid.New().String(),
		Type:      n.Type,
		Message:   n.Message,
		Seen:      false,
		ActorID:   n.ActorID,
		CreatedAt: r.q.now(),
	}
}

func (r *notificationRepo) insert(ctx context.Context, recipientID string, rec *model.Notification) error {
	_, err := r.q.exec(ctx, insertNotification,
		rec.ID,
		recipientID,
		rec.Type,
		rec.Message,
		rec.Seen,
		rec.ActorID,
		rec.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", recipientID)
		}
		return r.q.errorf("inserting notification for %s: %w", recipientID, err)
	}
	return nil
}

func (r *notificationRepo) requireUser(ctx context.Context, id string) error {
	var found string
	err := r.q.queryRow(ctx, `SELECT id FROM users WHERE id = ?`, id).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", id)
		}
		return r.q.errorf("looking up user %s: %w", id, err)
	}
	return nil
}
