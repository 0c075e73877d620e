package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTTL is how long a signed-in user's store stays in memory after
// its last Open. The persisted snapshot outlives it.
const DefaultIdleTTL = 30 * time.Minute

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry hands out one Store per signed-in user. It is constructed once at
// startup and injected wherever carts are needed.
type Registry struct {
	mu        sync.Mutex
	stores    map[string]*registryEntry
	persister Persister
	log       *zap.Logger
	now       func() time.Time
}

func NewRegistry(persister Persister, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		stores:    make(map[string]*registryEntry),
		persister: persister,
		log:       log,
		now:       time.Now,
	}
}

// Open returns the user's store re-hydrated from persistence, so a cart
// changed by another instance is picked up before the caller mutates it. An
// empty userID yields a fresh guest store that is never persisted or cached.
func (r *Registry) Open(ctx context.Context, userID string) *Store {
	if userID == "" {
		s := NewStore(nil, r.log)
		s.Initialize(ctx, "")
		return s
	}

	r.mu.Lock()
	e, ok := r.stores[userID]
	if !ok {
		e = &registryEntry{store: NewStore(r.persister, r.log)}
		r.stores[userID] = e
	}
	e.lastUsed = r.now()
	s := e.store
	r.mu.Unlock()

	s.Initialize(ctx, userID)
	return s
}

// Forget drops the in-memory store for userID. The persisted snapshot is untouched.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	delete(r.stores, userID)
	r.mu.Unlock()
}

// Evict drops every store not opened within idle and reports how many went.
// Persisted snapshots are untouched; the next Open re-hydrates from them.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for userID, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, userID)
			n++
		}
	}
	return n
}

// Sweep evicts stores idle for longer than idle, checking every idle/2,
// until ctx is done.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) {
	interval := idle / 2
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(idle); n > 0 {
				r.log.Debug("evicted idle carts", zap.Int("count", n))
			}
		}
	}
}

// Len reports how many users currently have a store in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
