package push

import (
	"log/slog"
	"sync"
)

// Registry maps user identities to their live channel. All methods are safe
// for concurrent use.
type Registry interface {
	// Register stores ch for userID. A previous channel for the same user is
	// closed before the new one is stored.
	Register(userID string, ch Channel)
	// Unregister removes and closes the user's channel. Safe when absent.
	Unregister(userID string)
	// Release closes ch and removes it if it is still the user's current
	// channel. It reports whether the user is left without any channel, which
	// is false when a newer connection has replaced ch.
	Release(userID string, ch Channel) bool
	// Send writes frame to the user's channel. A failed write removes and
	// closes the channel. Returns false when nothing was delivered.
	Send(userID string, frame []byte) bool
	UserIDs() []string
	Count() int
	IsConnected(userID string) bool
	// CloseAll closes and forgets every channel. Used on shutdown.
	CloseAll()
}

// compile-time check that *MemoryRegistry implements Registry
var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry is the in-process Registry. The mutex guards only the map
// and the non-blocking channel operations, never the lifetime of a connection.
type MemoryRegistry struct {
	conns  map[string]Channel
	logger *slog.Logger
	mu     sync.Mutex
}

func NewMemoryRegistry(logger *slog.Logger) *MemoryRegistry {
	return &MemoryRegistry{
		conns:  make(map[string]Channel),
		logger: logger,
	}
}

// Register closes the previous channel before storing the new one, under the
// same lock. Its handler sees Done and returns, and its Release finds a
// different current channel and leaves the user alone. A user therefore never
// has two live streams, and a stale stream cannot evict a fresh one.
func (r *MemoryRegistry) Register(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[userID]; ok && prev != ch {
		_ = prev.Close()
		r.logger.Info("live connection replaced",
			slog.String("user_id", userID),
			slog.String("old_conn", prev.ID()),
			slog.String("new_conn", ch.ID()),
		)
	}
	r.conns[userID] = ch
	r.logger.Info("live connection registered",
		slog.String("user_id", userID),
		slog.String("conn", ch.ID()),
		slog.Int("connected", len(r.conns)),
	)
}

func (r *MemoryRegistry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(r.conns, userID)
	_ = ch.Close()
	r.logger.Info("live connection unregistered",
		slog.String("user_id", userID),
		slog.String("conn", ch.ID()),
	)
}

func (r *MemoryRegistry) Release(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_ = ch.Close()

	current, ok := r.conns[userID]
	if !ok {
		return true
	}
	if current != ch {
		return false
	}
	delete(r.conns, userID)
	r.logger.Info("live connection released",
		slog.String("user_id", userID),
		slog.String("conn", ch.ID()),
		slog.Int("connected", len(r.conns)),
	)
	return true
}

func (r *MemoryRegistry) Send(userID string, frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.conns[userID]
	if !ok {
		return false
	}

	if err := ch.Send(frame); err != nil {
		delete(r.conns, userID)
		_ = ch.Close()
		r.logger.Warn("live connection dropped after failed write",
			slog.String("user_id", userID),
			slog.String("conn", ch.ID()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (r *MemoryRegistry) UserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *MemoryRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *MemoryRegistry) IsConnected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[userID]
	return ok
}

func (r *MemoryRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ch := range r.conns {
		_ = ch.Close()
		delete(r.conns, id)
	}
	r.logger.Info("all live connections closed")
}
