package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
)

// FollowNotificationType tags the record a user gets when someone follows them.
const FollowNotificationType = "follow"

// SocialService maintains follow edges and the denormalized follower count.
//
// Every write that changes a user's edges first locks that user's row.
// RecountFollowers reads COUNT(*) and then writes the result; under READ
// COMMITTED two transactions adding different followers of the same user
// would each count only their own uncommitted edge, and the later commit
// would store a count one short. With the row held, the second transaction
// waits for the first to commit and counts both edges.
type SocialService struct {
	store    repository.Store
	notifier *NotificationService
	logger   *slog.Logger
}

func NewSocialService(store repository.Store, notifier *NotificationService, logger *slog.Logger) *SocialService {
	return &SocialService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Follow makes followerID follow userID.
//
// The edge insert, the follower count recomputation and the "followed you"
// record for userID commit together. A repeated follow adds no edge but still
// records a notification. The push to userID happens after commit.
func (s *SocialService) Follow(ctx context.Context, followerID, userID string) error {
	followerID = strings.TrimSpace(followerID)
	userID = strings.TrimSpace(userID)
	if followerID == "" || userID == "" {
		return apperror.ValidationFailed("followerId", "Follower ID and user ID are required")
	}
	if followerID == userID {
		return apperror.InvalidOperation("Users cannot follow themselves")
	}

	var (
		record *model.Notification
		online bool
		added  bool
		count  int
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		// === 1. LOCK THE FOLLOWED USER ===
		if err := tx.Users().LockForUpdate(ctx, userID); err != nil {
			return err
		}
		follower, err := tx.Users().GetByID(ctx, followerID)
		if err != nil {
			return err
		}

		// === 2. WRITE EDGE AND COUNT ===
		added, err = tx.Follows().Add(ctx, userID, followerID)
		if err != nil {
			return err
		}
		count, err = tx.Follows().RecountFollowers(ctx, userID)
		if err != nil {
			return err
		}

		// === 3. RECORD THE NOTIFICATION ===
		record, online, err = s.notifier.appendDirected(ctx, tx, userID, repository.NewNotification{
			Type:    FollowNotificationType,
			Message: render(follower.Username, "followed you"),
			ActorID: followerID,
		})
		return err
	})
	if err != nil {
		return classify(s.logger, "failed to follow user", "Failed to follow user", err,
			slog.String("follower_id", followerID),
			slog.String("user_id", userID),
		)
	}

	s.logger.Info("user followed",
		slog.String("follower_id", followerID),
		slog.String("user_id", userID),
		slog.Bool("new_edge", added),
		slog.Int("follower_count", count),
	)
	s.notifier.pushDirected(userID, record, online)
	return nil
}

// Unfollow removes the edge if present and recomputes the follower count.
// Both users must exist; unfollowing a user that is not followed is a no-op.
func (s *SocialService) Unfollow(ctx context.Context, followerID, userID string) error {
	followerID = strings.TrimSpace(followerID)
	userID = strings.TrimSpace(userID)
	if followerID == "" || userID == "" {
		return apperror.ValidationFailed("followerId", "Follower ID and user ID are required")
	}

	var (
		removed bool
		count   int
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.Users().LockForUpdate(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.Users().GetByID(ctx, followerID); err != nil {
			return err
		}

		exists, err := tx.Follows().Exists(ctx, userID, followerID)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}

		removed, err = tx.Follows().Remove(ctx, userID, followerID)
		if err != nil {
			return err
		}
		count, err = tx.Follows().RecountFollowers(ctx, userID)
		return err
	})
	if err != nil {
		return classify(s.logger, "failed to unfollow user", "Failed to unfollow user", err,
			slog.String("follower_id", followerID),
			slog.String("user_id", userID),
		)
	}

	if !removed {
		s.logger.Debug("unfollow without edge",
			slog.String("follower_id", followerID),
			slog.String("user_id", userID),
		)
		return nil
	}

	s.logger.Info("user unfollowed",
		slog.String("follower_id", followerID),
		slog.String("user_id", userID),
		slog.Int("follower_count", count),
	)
	return nil
}
