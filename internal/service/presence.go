package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/push"
	"github.com/sakif/notification-hub/internal/repository"
)

// PresenceService keeps the stored online flag in step with the live
// connection registry.
//
// The registry and the users table are two stores, so a connect or a
// disconnect is two writes. Without a lock a closing stream A and a new
// stream B for the same user can interleave as
//
//	A: registry.Release -> user left without a channel
//	B: SetOnline(true)
//	B: registry.Register
//	A: SetOnline(false)
//
// which leaves B connected while the user is stored offline, so broadcasts
// skip them. Connect and Disconnect therefore hold a per-user lock across
// both writes. Users never wait on each other.
type PresenceService struct {
	users    repository.UserRepository
	registry push.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewPresenceService(users repository.UserRepository, registry push.Registry, logger *slog.Logger) *PresenceService {
	return &PresenceService{
		users:    users,
		registry: registry,
		logger:   logger,
		locks:    make(map[string]*userLock),
	}
}

// Connect registers ch as the user's live channel and marks the user online.
// Unknown users get apperror.ErrNotFound and ch is left unregistered.
func (s *PresenceService) Connect(ctx context.Context, userID string, ch push.Channel) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperror.ValidationFailed("userId", "User ID is required")
	}

	unlock := s.lock(userID)
	defer unlock()

	// === 1. TAKE OVER THE REGISTRY SLOT ===
	s.registry.Register(userID, ch)

	// === 2. PERSIST THE ONLINE FLAG ===
	if err := s.users.SetOnline(ctx, userID, true); err != nil {
		s.registry.Release(userID, ch)
		return classify(s.logger, "failed to mark user online", "Failed to establish connection", err,
			slog.String("user_id", userID),
		)
	}

	s.logger.Info("user connected",
		slog.String("user_id", userID),
		slog.String("conn", ch.ID()),
	)
	return nil
}

// Disconnect releases ch and marks the user offline unless a newer channel
// has replaced it. It reports whether the user went offline.
func (s *PresenceService) Disconnect(ctx context.Context, userID string, ch push.Channel) bool {
	unlock := s.lock(userID)
	defer unlock()

	if !s.registry.Release(userID, ch) {
		s.logger.Debug("replaced live connection closed",
			slog.String("user_id", userID),
			slog.String("conn", ch.ID()),
		)
		return false
	}

	if err := s.users.SetOnline(ctx, userID, false); err != nil {
		s.logger.Warn("failed to mark user offline",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return true
	}

	s.logger.Info("user disconnected",
		slog.String("user_id", userID),
		slog.String("conn", ch.ID()),
	)
	return true
}

// lock acquires the user's mutex and returns its release. Entries are
// reference counted and dropped once no caller holds or waits on them.
func (s *PresenceService) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}
