// Package repository declares the storage contracts used by the service layer.
//
// The backend is consumed as a transactional store: a Store hands out the same three
// repositories either bound to the connection pool (each call atomic on its own) or
// bound to one transaction through WithTx.
package repository

import (
	"context"

	"github.com/sakif/notification-hub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetOnline(ctx context.Context, id string, online bool) error
	// IsOnline returns false for unknown users.
	IsOnline(ctx context.Context, id string) (bool, error)
	// LockForUpdate blocks concurrent writers of the user's row until the
	// surrounding transaction ends. Returns apperror.ErrNotFound for unknown users.
	LockForUpdate(ctx context.Context, id string) error
}

type FollowRepository interface {
	// Add inserts the edge if absent and reports whether a row was written.
	Add(ctx context.Context, userID, followerID string) (bool, error)
	// Remove deletes the edge if present and reports whether a row was removed.
	Remove(ctx context.Context, userID, followerID string) (bool, error)
	// RecountFollowers rewrites users.follower_count from the edge set and returns it.
	RecountFollowers(ctx context.Context, userID string) (int, error)
	// OnlineFollowers lists followers of userID whose online flag is set.
	OnlineFollowers(ctx context.Context, userID string) ([]string, error)
	// Exists reports whether followerID follows userID.
	Exists(ctx context.Context, userID, followerID string) (bool, error)
}

// NewNotification is the part of a record chosen by the caller; the store
// assigns ID and CreatedAt.
type NewNotification struct {
	Type    string
	Message string
	ActorID string
}

type NotificationRepository interface {
	// Append stores one record for recipient and returns it.
	Append(ctx context.Context, recipientID string, n NewNotification) (*model.Notification, error)
	// AppendMany stores one record per recipient. All rows share one ID and
	// timestamp; the returned template has RecipientID unset.
	AppendMany(ctx context.Context, recipientIDs []string, n NewNotification) (*model.Notification, error)
	// List returns the recipient's records newest first, ties by insertion order.
	List(ctx context.Context, recipientID string) ([]model.Notification, error)
	// MarkSeen is a no-op when the record does not exist.
	MarkSeen(ctx context.Context, recipientID, notificationID string) error
	Clear(ctx context.Context, recipientID string) error
	// Trim keeps the newest keep records of recipient and deletes the rest.
	Trim(ctx context.Context, recipientID string, keep int) error
}

// Tx bundles the repositories bound to one database handle.
type Tx interface {
	Users() UserRepository
	Follows() FollowRepository
	Notifications() NotificationRepository
}

// Store is the transactional backend. Calls made through the embedded Tx run
// outside any transaction; WithTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
