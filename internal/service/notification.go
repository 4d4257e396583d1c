// Package service contains the business logic of the notification hub.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, runs transactions, pushes live events
//	Repository      → reads/writes the database
//
// Services depend on repository.Store and on a Pusher, never on a concrete
// database or on HTTP types, so they can be exercised with plain function calls.
//
// Every mutation that writes notification records runs inside one
// Store.WithTx call. Live pushes happen only after that call has committed, so
// a client never sees an event for a record that was rolled back.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
)

// Pusher delivers events to live connections. Misses are not errors.
type Pusher interface {
	Send(userID string, ev model.Event) bool
	SendMany(userIDs []string, ev model.Event) int
}

// NotificationService is the fan-out engine. It decides who receives a
// notification, stores it and pushes it to whoever is online.
type NotificationService struct {
	store     repository.Store
	pusher    Pusher
	logger    *slog.Logger
	retention int
}

// NotificationOption configures a NotificationService.
type NotificationOption func(*NotificationService)

// WithRetention caps each recipient's history at keep records; older ones are
// evicted in the same transaction that appends. keep <= 0 means unbounded.
func WithRetention(keep int) NotificationOption {
	return func(s *NotificationService) {
		s.retention = keep
	}
}

func NewNotificationService(store repository.Store, pusher Pusher, logger *slog.Logger, opts ...NotificationOption) *NotificationService {
	s := &NotificationService{
		store:  store,
		pusher: pusher,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyFollowers fans an event out to the actor's followers that are online
// right now. Offline followers get nothing, now or later. No online followers
// is a successful no-op.
//
// "Online" is the stored is_online flag read inside the transaction, not the
// registry. The recipient list and the stored rows therefore always agree,
// and a follower whose stream is mid-reconnect still gets the record. The
// push happens after commit so a rolled back broadcast is never seen live.
func (s *NotificationService) NotifyFollowers(ctx context.Context, actorID, typ, message string) error {
	actorID = strings.TrimSpace(actorID)
	typ = strings.TrimSpace(typ)
	if actorID == "" || typ == "" || message == "" {
		return apperror.ValidationFailed("actorId", "Actor ID, type, and message are required")
	}

	var (
		recipients []string
		record     *model.Notification
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		actor, err := tx.Users().GetByID(ctx, actorID)
		if err != nil {
			return err
		}

		// === 1. SNAPSHOT ONLINE FOLLOWERS ===
		recipients, err = tx.Follows().OnlineFollowers(ctx, actorID)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return nil
		}

		// === 2. STORE ONE ROW PER RECIPIENT ===
		record, err = tx.Notifications().AppendMany(ctx, recipients, repository.NewNotification{
			Type:    typ,
			Message: render(actor.Username, message),
			ActorID: actorID,
		})
		if err != nil {
			return err
		}

		for _, id := range recipients {
			if err := s.trim(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(s.logger, "failed to notify followers", "Failed to create notification", err,
			slog.String("actor_id", actorID),
			slog.String("type", typ),
		)
	}

	if record == nil {
		s.logger.Info("no online followers to notify", slog.String("actor_id", actorID))
		return nil
	}

	// === 3. PUSH AFTER COMMIT ===
	delivered := s.pusher.SendMany(recipients, model.NotificationEvent(record))
	s.logger.Info("notification fanned out",
		slog.String("id", record.ID),
		slog.String("actor_id", actorID),
		slog.String("type", typ),
		slog.Int("recipients", len(recipients)),
		slog.Int("delivered", delivered),
	)
	return nil
}

// NotifyUser stores exactly one record for the target whatever their presence,
// then pushes it if the target is online.
func (s *NotificationService) NotifyUser(ctx context.Context, actorID, targetID, typ, message string) (*model.Notification, error) {
	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	typ = strings.TrimSpace(typ)
	if actorID == "" || targetID == "" || typ == "" || message == "" {
		return nil, apperror.ValidationFailed("targetUserId", "Actor ID, target user ID, type, and message are required")
	}

	var (
		record *model.Notification
		online bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		actor, err := tx.Users().GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		record, online, err = s.appendDirected(ctx, tx, targetID, repository.NewNotification{
			Type:    typ,
			Message: render(actor.Username, message),
			ActorID: actorID,
		})
		return err
	})
	if err != nil {
		return nil, classify(s.logger, "failed to notify user", "Failed to create one-to-one notification", err,
			slog.String("actor_id", actorID),
			slog.String("target_id", targetID),
		)
	}

	s.pushDirected(targetID, record, online)
	return record, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "User ID is required")
	}

	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, classify(s.logger, "failed to list notifications", "Failed to get notifications", err, slog.String("user_id", userID))
	}

	list, err := s.store.Notifications().List(ctx, userID)
	if err != nil {
		return nil, classify(s.logger, "failed to list notifications", "Failed to get notifications", err, slog.String("user_id", userID))
	}
	return list, nil
}

// MarkSeen flags one record as seen. Unknown records are ignored.
func (s *NotificationService) MarkSeen(ctx context.Context, userID, notificationID string) error {
	userID = strings.TrimSpace(userID)
	notificationID = strings.TrimSpace(notificationID)
	if userID == "" || notificationID == "" {
		return apperror.ValidationFailed("notificationId", "User ID and notification ID are required")
	}

	if err := s.store.Notifications().MarkSeen(ctx, userID, notificationID); err != nil {
		return classify(s.logger, "failed to mark notification seen", "Failed to mark notification as seen", err,
			slog.String("user_id", userID),
			slog.String("notification_id", notificationID),
		)
	}
	return nil
}

// Clear deletes the user's whole history.
func (s *NotificationService) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperror.ValidationFailed("userId", "User ID is required")
	}

	if err := s.store.Notifications().Clear(ctx, userID); err != nil {
		return classify(s.logger, "failed to clear notifications", "Failed to clear notifications", err, slog.String("user_id", userID))
	}
	s.logger.Info("notifications cleared", slog.String("user_id", userID))
	return nil
}

// appendDirected stores one record for targetID inside tx and reports whether
// the target was online when it was written. Shared by NotifyUser and Follow.
func (s *NotificationService) appendDirected(ctx context.Context, tx repository.Tx, targetID string, n repository.NewNotification) (*model.Notification, bool, error) {
	record, err := tx.Notifications().Append(ctx, targetID, n)
	if err != nil {
		return nil, false, err
	}
	if err := s.trim(ctx, tx, targetID); err != nil {
		return nil, false, err
	}
	online, err := tx.Users().IsOnline(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	return record, online, nil
}

// pushDirected runs after commit.
func (s *NotificationService) pushDirected(targetID string, record *model.Notification, online bool) {
	delivered := false
	if online {
		delivered = s.pusher.Send(targetID, model.NotificationEvent(record))
	}
	s.logger.Info("directed notification stored",
		slog.String("id", record.ID),
		slog.String("target_id", targetID),
		slog.String("type", record.Type),
		slog.Bool("online", online),
		slog.Bool("delivered", delivered),
	)
}

func (s *NotificationService) trim(ctx context.Context, tx repository.Tx, recipientID string) error {
	if s.retention <= 0 {
		return nil
	}
	return tx.Notifications().Trim(ctx, recipientID, s.retention)
}

// classify passes AppErrors through and turns everything else into an
// apperror.Internal with a message safe to show to clients.
func classify(logger *slog.Logger, logMsg, safeMsg string, err error, attrs ...any) error {
	if apperror.IsApp(err) {
		return err
	}
	logger.Error(logMsg, append(attrs, slog.String("error", err.Error()))...)
	return apperror.Internal(safeMsg, fmt.Errorf("%s: %w", logMsg, err))
}

// render interpolates the actor's name once, at write time.
func render(username, message string) string {
	return username + " " + message
}
