package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketchat/internal/infrastructure/cache/port"
)

func TestLocalPresenceRegisterAndLookup(t *testing.T) {
	p := NewLocalPresence()
	ctx := context.Background()

	require.NoError(t, p.Register(ctx, "u1", "s1"))

	sid, ok, err := p.Lookup(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s1", sid)

	_, ok, err = p.Lookup(ctx, "u2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalPresenceReplacesBinding(t *testing.T) {
	p := NewLocalPresence()
	ctx := context.Background()

	require.NoError(t, p.Register(ctx, "u1", "s1"))
	require.NoError(t, p.Register(ctx, "u1", "s2"))

	sid, ok, _ := p.Lookup(ctx, "u1")
	require.True(t, ok)
	require.Equal(t, "s2", sid)
}

func TestLocalPresenceUnregisterSession(t *testing.T) {
	p := NewLocalPresence()
	ctx := context.Background()

	require.NoError(t, p.Register(ctx, "u1", "s1"))
	require.NoError(t, p.Register(ctx, "u2", "s1"))
	require.NoError(t, p.Register(ctx, "u3", "s2"))

	removed, err := p.UnregisterSession(ctx, "s1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, removed)

	_, ok, _ := p.Lookup(ctx, "u1")
	require.False(t, ok)
	_, ok, _ = p.Lookup(ctx, "u3")
	require.True(t, ok)
}

func TestLocalPresenceRejectsEmptyIDs(t *testing.T) {
	p := NewLocalPresence()
	require.Error(t, p.Register(context.Background(), "", "s1"))
	require.Error(t, p.Register(context.Background(), "u1", ""))
}

// fakeCache is an in-process Cache used to exercise CachePresence without redis.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[string]string)} }

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	if !ok {
		return "", port.ErrMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	f.entries[key] = value
	f.mu.Unlock()
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.entries[k]; ok {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }
func (f *fakeCache) Close() error               { return nil }

func TestCachePresenceRoundTrip(t *testing.T) {
	p := NewCachePresence(newFakeCache(), time.Minute)
	ctx := context.Background()

	require.NoError(t, p.Register(ctx, "u1", "s1"))

	sid, ok, err := p.Lookup(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s1", sid)

	require.NoError(t, p.Unregister(ctx, "u1"))
	_, ok, err = p.Lookup(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachePresenceUnregisterSession(t *testing.T) {
	p := NewCachePresence(newFakeCache(), time.Minute)
	ctx := context.Background()

	require.NoError(t, p.Register(ctx, "u1", "s1"))

	removed, err := p.UnregisterSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, removed)

	// Unknown sessions are a clean no-op.
	removed, err = p.UnregisterSession(ctx, "s9")
	require.NoError(t, err)
	require.Empty(t, removed)
}
