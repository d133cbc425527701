package keyValue

import (
	"chatapp-client/internal/docstore/docstoretest"
	"chatapp-client/internal/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocalStore(t *testing.T) *Store {
	t.Helper()
	s := New(zap.NewNop().Sugar(), nil, true)
	t.Cleanup(s.Close)
	return s
}

func TestLocalSetGetDel(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", time.Minute))

	value, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	value, err = s.GetDel(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	value, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestLocalExpiry(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "x", time.Nanosecond))
	require.NoError(t, s.Set(ctx, "forever", "y", 0))
	time.Sleep(time.Millisecond)

	value, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.Empty(t, value, "expired key should read as missing")

	s.deleteExpired(time.Now().Add(time.Hour))

	s.mutex.RLock()
	_, shortKept := s.hashmap["short"]
	_, foreverKept := s.hashmap["forever"]
	s.mutex.RUnlock()

	assert.False(t, shortKept)
	assert.True(t, foreverKept)
}

func TestProfilesAreCached(t *testing.T) {
	s := newLocalStore(t)
	db := docstoretest.New()
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, models.UserPath("u1"), map[string]any{"displayName": "Ada", "photoURL": "https://x/a.png"}))

	profiles := NewProfiles(s, db, time.Minute)

	user, err := profiles.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.DisplayName)
	assert.Equal(t, "u1", user.ID)

	require.NoError(t, db.Delete(ctx, models.UserPath("u1")))

	user, err = profiles.Lookup(ctx, "u1")
	require.NoError(t, err, "second lookup should be served from cache")
	assert.Equal(t, "Ada", user.DisplayName)

	require.NoError(t, profiles.Forget(ctx, "u1"))
	_, err = profiles.Lookup(ctx, "u1")
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	settings := NewSettings(newLocalStore(t))
	ctx := context.Background()

	require.NoError(t, settings.Set(ctx, "u1", "theme", "dark"))

	value, err := settings.Get(ctx, "u1", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)

	value, err = settings.Get(ctx, "u2", "theme")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, settings.Set(ctx, "u1", "theme", ""))
	value, err = settings.Get(ctx, "u1", "theme")
	require.NoError(t, err)
	assert.Empty(t, value)
}
