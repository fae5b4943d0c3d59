package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketchat/internal/infrastructure/cache/port"
)

// Presence tracks which users currently hold a live connection. It is not a
// source of truth for offline history, only for "who can I reach right now":
// readers must treat a missing entry as unreachable and drop silently.
//
// The port exists so the process-local map can be swapped for a shared store
// in a multi-instance deployment without touching the gateway.
type Presence interface {
	// Register binds userID to sessionID, replacing any prior binding.
	Register(ctx context.Context, userID, sessionID string) error
	Unregister(ctx context.Context, userID string) error
	// UnregisterSession removes every binding held by sessionID and returns
	// the affected user ids. Used on abrupt disconnect.
	UnregisterSession(ctx context.Context, sessionID string) ([]string, error)
	Lookup(ctx context.Context, userID string) (string, bool, error)
}

// LocalPresence is the process-local baseline: a user->session map guarded by
// a mutex. Mutated only by join/leave/disconnect handlers.
type LocalPresence struct {
	mu      sync.RWMutex
	entries map[string]string // userID -> sessionID
}

func NewLocalPresence() *LocalPresence {
	return &LocalPresence{entries: make(map[string]string)}
}

var _ Presence = (*LocalPresence)(nil)

func (p *LocalPresence) Register(_ context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return errors.New("presence: userID and sessionID are required")
	}
	p.mu.Lock()
	p.entries[userID] = sessionID
	p.mu.Unlock()
	return nil
}

func (p *LocalPresence) Unregister(_ context.Context, userID string) error {
	p.mu.Lock()
	delete(p.entries, userID)
	p.mu.Unlock()
	return nil
}

// UnregisterSession scans all entries for the dropped session. The O(n) walk
// is acceptable here: disconnects are rare relative to messages.
func (p *LocalPresence) UnregisterSession(_ context.Context, sessionID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed []string
	for userID, sid := range p.entries {
		if sid == sessionID {
			removed = append(removed, userID)
			delete(p.entries, userID)
		}
	}
	return removed, nil
}

func (p *LocalPresence) Lookup(_ context.Context, userID string) (string, bool, error) {
	p.mu.RLock()
	sid, ok := p.entries[userID]
	p.mu.RUnlock()
	return sid, ok, nil
}

// CachePresence keeps presence entries in the shared cache so multiple
// instances can see each other's registrations. Entries carry a TTL as a
// safety net against crashed instances that never unregister.
type CachePresence struct {
	cache port.Cache
	ttl   time.Duration
}

func NewCachePresence(cache port.Cache, ttl time.Duration) *CachePresence {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &CachePresence{cache: cache, ttl: ttl}
}

var _ Presence = (*CachePresence)(nil)

func userKey(userID string) string       { return "presence:user:" + userID }
func sessionKey(sessionID string) string { return "presence:session:" + sessionID }

func (p *CachePresence) Register(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return errors.New("presence: userID and sessionID are required")
	}
	if err := p.cache.Set(ctx, userKey(userID), sessionID, p.ttl); err != nil {
		return err
	}
	return p.cache.Set(ctx, sessionKey(sessionID), userID, p.ttl)
}

func (p *CachePresence) Unregister(ctx context.Context, userID string) error {
	sid, err := p.cache.Get(ctx, userKey(userID))
	if err != nil && !errors.Is(err, port.ErrMiss) {
		return err
	}
	keys := []string{userKey(userID)}
	if sid != "" {
		keys = append(keys, sessionKey(sid))
	}
	_, err = p.cache.Del(ctx, keys...)
	return err
}

func (p *CachePresence) UnregisterSession(ctx context.Context, sessionID string) ([]string, error) {
	userID, err := p.cache.Get(ctx, sessionKey(sessionID))
	if errors.Is(err, port.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.cache.Del(ctx, userKey(userID), sessionKey(sessionID)); err != nil {
		return nil, err
	}
	return []string{userID}, nil
}

func (p *CachePresence) Lookup(ctx context.Context, userID string) (string, bool, error) {
	sid, err := p.cache.Get(ctx, userKey(userID))
	if errors.Is(err, port.ErrMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sid, true, nil
}
