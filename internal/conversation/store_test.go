package conversation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neorisk-server/internal/domain"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession("chat")
	assert.False(t, s.InProgress())

	key, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, domain.ParamPH, key)

	for i, v := range []float64{7.25, 2, 5, 1800, 4.8, 0, 1} {
		assert.False(t, s.Complete())
		s.Accept(v)
		assert.Equal(t, i+1, s.Step)
	}

	assert.True(t, s.Complete())
	assert.False(t, s.InProgress(), "a finished entry accepts a fresh batch")
	_, ok = s.Current()
	assert.False(t, ok)
	assert.NoError(t, s.Input().Validate())

	clone := s.Clone()
	clone.Values[domain.ParamPH] = 7.0
	assert.Equal(t, 7.25, s.Values[domain.ParamPH])
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(2, time.Minute)

	missing, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	s := NewSession("a")
	s.Accept(7.3)
	require.NoError(t, store.Save(ctx, s))

	// stored copies are isolated from the caller
	s.Accept(3)
	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Step)

	require.NoError(t, store.Save(ctx, NewSession("b")))
	require.NoError(t, store.Save(ctx, NewSession("c")))
	assert.Equal(t, 2, store.Len(), "least recently used session is evicted")

	require.NoError(t, store.Delete(ctx, "c"))
	gone, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemorySessionStore_SaveRejectsStaleRevision(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(10, time.Minute)

	require.NoError(t, store.Save(ctx, NewSession("chat")))

	first, err := store.Load(ctx, "chat")
	require.NoError(t, err)
	second, err := store.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Revision)

	first.Accept(7.25)
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Revision)

	second.Accept(7.30)
	assert.ErrorIs(t, store.Save(ctx, second), ErrSessionConflict)

	stored, err := store.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, 7.25, stored.Values[domain.ParamPH])

	// a fresh session only wins against an empty slot
	assert.ErrorIs(t, store.Save(ctx, NewSession("chat")), ErrSessionConflict)
	require.NoError(t, store.Delete(ctx, "chat"))
	assert.NoError(t, store.Save(ctx, NewSession("chat")))
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(10, 50*time.Millisecond)
	require.NoError(t, store.Save(ctx, NewSession("a")))

	assert.Eventually(t, func() bool {
		s, err := store.Load(ctx, "a")
		return err == nil && s == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis session store tests")
	}

	logger, _ := test.NewNullLogger()
	store, err := NewRedisSessionStore(
		domain.RedisConfig{URL: url},
		domain.SessionConfig{TTL: time.Minute, KeyPrefix: "neorisk:test:"},
		logger,
	)
	if err != nil {
		t.Skipf("Redis not reachable: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	chatID := "redis-" + time.Now().Format("150405.000000")

	require.NoError(t, store.Ping(ctx))

	missing, err := store.Load(ctx, chatID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	s := NewSession(chatID)
	s.Accept(7.25)
	s.Accept(2)
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Step)
	assert.Equal(t, 7.25, loaded.Values[domain.ParamPH])

	stale := loaded.Clone()
	loaded.Accept(5)
	require.NoError(t, store.Save(ctx, loaded))
	stale.Accept(6)
	assert.ErrorIs(t, store.Save(ctx, stale), ErrSessionConflict)

	require.NoError(t, store.Delete(ctx, chatID))
	gone, err := store.Load(ctx, chatID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestNewRedisSessionStore_InvalidURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewRedisSessionStore(domain.RedisConfig{URL: "not-a-url"}, domain.SessionConfig{}, logger)
	assert.Error(t, err)
}

func TestStripedLock_SameKeySameStripe(t *testing.T) {
	l := newStripedLock(8)
	assert.Same(t, l.forKey("chat-1"), l.forKey("chat-1"))

	unlock := l.Lock("chat-1")
	unlock()
}
