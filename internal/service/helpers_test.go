package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/sakif/notification-hub/internal/model"
	"github.com/sakif/notification-hub/internal/repository"
	"github.com/sakif/notification-hub/internal/repository/sqldb"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// TEST DOUBLES
// =========================================================================

// recordingPusher remembers every event handed to it. Users listed in
// connected accept the event; everyone else is a delivery miss.
type recordingPusher struct {
	mu        sync.Mutex
	connected map[string]bool
	sent      map[string][]model.Event
}

func newRecordingPusher(connected ...string) *recordingPusher {
	p := &recordingPusher{
		connected: make(map[string]bool),
		sent:      make(map[string][]model.Event),
	}
	for _, id := range connected {
		p.connected[id] = true
	}
	return p
}

func (p *recordingPusher) Send(userID string, ev model.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[userID] = append(p.sent[userID], ev)
	return p.connected[userID]
}

func (p *recordingPusher) SendMany(userIDs []string, ev model.Event) int {
	n := 0
	for _, id := range userIDs {
		if p.Send(id, ev) {
			n++
		}
	}
	return n
}

func (p *recordingPusher) eventsFor(userID string) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.sent[userID]...)
}

func (p *recordingPusher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evs := range p.sent {
		n += len(evs)
	}
	return n
}

// faultyStore wraps a real store and makes chosen notification writes fail
// inside transactions.
type faultyStore struct {
	repository.Store
	appendErr error
	trimErr   error
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	repository.Tx
	store *faultyStore
}

func (t *faultyTx) Notifications() repository.NotificationRepository {
	return &faultyNotifications{NotificationRepository: t.Tx.Notifications(), store: t.store}
}

type faultyNotifications struct {
	repository.NotificationRepository
	store *faultyStore
}

func (n *faultyNotifications) Append(ctx context.Context, recipientID string, rec repository.NewNotification) (*model.Notification, error) {
	if n.store.appendErr != nil {
		return nil, n.store.appendErr
	}
	return n.NotificationRepository.Append(ctx, recipientID, rec)
}

func (n *faultyNotifications) Trim(ctx context.Context, recipientID string, keep int) error {
	if n.store.trimErr != nil {
		return n.store.trimErr
	}
	return n.NotificationRepository.Trim(ctx, recipientID, keep)
}

// journalStore wraps a real store and records, in order, the user locks and
// edge writes made inside transactions.
type journalStore struct {
	repository.Store
	mu      sync.Mutex
	entries []string
}

func (s *journalStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&journalTx{Tx: tx, store: s})
	})
}

func (s *journalStore) record(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *journalStore) journal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

type journalTx struct {
	repository.Tx
	store *journalStore
}

func (t *journalTx) Users() repository.UserRepository {
	return &journalUsers{UserRepository: t.Tx.Users(), store: t.store}
}

func (t *journalTx) Follows() repository.FollowRepository {
	return &journalFollows{FollowRepository: t.Tx.Follows(), store: t.store}
}

type journalUsers struct {
	repository.UserRepository
	store *journalStore
}

func (u *journalUsers) LockForUpdate(ctx context.Context, id string) error {
	u.store.record("lock " + id)
	return u.UserRepository.LockForUpdate(ctx, id)
}

type journalFollows struct {
	repository.FollowRepository
	store *journalStore
}

func (f *journalFollows) Add(ctx context.Context, userID, followerID string) (bool, error) {
	f.store.record("add " + userID)
	return f.FollowRepository.Add(ctx, userID, followerID)
}

func (f *journalFollows) Remove(ctx context.Context, userID, followerID string) (bool, error) {
	f.store.record("remove " + userID)
	return f.FollowRepository.Remove(ctx, userID, followerID)
}

func (f *journalFollows) RecountFollowers(ctx context.Context, userID string) (int, error) {
	f.store.record("recount " + userID)
	return f.FollowRepository.RecountFollowers(ctx, userID)
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, store repository.Store, username string, online bool) *model.User {
	t.Helper()
	u := &model.User{Username: username}
	require.NoError(t, store.Users().Create(context.Background(), u))
	if online {
		require.NoError(t, store.Users().SetOnline(context.Background(), u.ID, true))
	}
	return u
}

func follow(t *testing.T, store repository.Store, userID, followerID string) {
	t.Helper()
	_, err := store.Follows().Add(context.Background(), userID, followerID)
	require.NoError(t, err)
	_, err = store.Follows().RecountFollowers(context.Background(), userID)
	require.NoError(t, err)
}

func listFor(t *testing.T, store repository.Store, userID string) []model.Notification {
	t.Helper()
	list, err := store.Notifications().List(context.Background(), userID)
	require.NoError(t, err)
	return list
}
