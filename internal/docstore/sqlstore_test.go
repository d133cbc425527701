package docstore

import (
	"chatapp-client/internal/database"
	"chatapp-client/internal/notify"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	sugar := zap.NewNop().Sugar()

	db, err := database.OpenSqlite(sugar, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	store := NewSQL(sugar, db, database.DialectSqlite, notify.NewLocal(sugar))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStoreDocuments(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)

	require.NoError(t, store.Set(ctx, "servers/1", map[string]any{"name": "one", "ownerId": "u1"}))

	doc, err := store.Get(ctx, "servers/1")
	require.NoError(t, err)
	assert.Equal(t, "1", doc.ID)
	assert.Equal(t, "one", doc.Data["name"])

	require.NoError(t, store.Update(ctx, "servers/1", map[string]any{"name": "renamed"}))
	doc, err = store.Get(ctx, "servers/1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", doc.Data["name"])
	assert.Equal(t, "u1", doc.Data["ownerId"])

	// set replaces the whole document
	require.NoError(t, store.Set(ctx, "servers/1", map[string]any{"name": "replaced"}))
	doc, err = store.Get(ctx, "servers/1")
	require.NoError(t, err)
	assert.NotContains(t, doc.Data, "ownerId")

	assert.ErrorIs(t, store.Update(ctx, "servers/2", map[string]any{"name": "x"}), ErrNotFound)

	require.NoError(t, store.Delete(ctx, "servers/1"))
	require.NoError(t, store.Delete(ctx, "servers/1"))
	_, err = store.Get(ctx, "servers/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreList(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("servers/1/channels/c%d", i), map[string]any{"position": i}))
	}
	require.NoError(t, store.Set(ctx, "servers/2/channels/other", map[string]any{"position": 0}))

	docs, err := store.List(ctx, Query{Path: "servers/1/channels"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c1", docs[0].ID)

	docs, err = store.List(ctx, Query{Path: "servers/1/channels", IDs: []string{"c3", "c1", "missing"}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"c1", "c3"}, []string{docs[0].ID, docs[1].ID})

	ids := make([]string, MaxInFilter+1)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	_, err = store.List(ctx, Query{Path: "servers/1/channels", IDs: ids})
	assert.Error(t, err)
}

func TestSQLStoreWatch(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)

	require.NoError(t, store.Set(ctx, "servers/1/roles/r1", map[string]any{"name": "everyone"}))

	var mutex sync.Mutex
	var latest []Document
	deliveries := 0
	unsubscribe := store.Watch(Query{Path: "servers/1/roles"}, func(docs []Document, err error) {
		assert.NoError(t, err)
		mutex.Lock()
		defer mutex.Unlock()
		latest = docs
		deliveries++
	})
	defer unsubscribe()

	seen := func(n int) func() bool {
		return func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return len(latest) == n
		}
	}

	require.Eventually(t, seen(1), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Set(ctx, "servers/1/roles/r2", map[string]any{"name": "mods"}))
	require.Eventually(t, seen(2), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Delete(ctx, "servers/1/roles/r1"))
	require.Eventually(t, seen(1), 2*time.Second, 10*time.Millisecond)

	// writes to another collection don't wake this watch
	mutex.Lock()
	before := deliveries
	mutex.Unlock()
	require.NoError(t, store.Set(ctx, "servers/1/channels/c1", map[string]any{"name": "general"}))
	time.Sleep(100 * time.Millisecond)
	mutex.Lock()
	assert.Equal(t, before, deliveries)
	mutex.Unlock()

	unsubscribe()
	require.NoError(t, store.Set(ctx, "servers/1/roles/r3", map[string]any{"name": "late"}))
	time.Sleep(100 * time.Millisecond)
	mutex.Lock()
	assert.Len(t, latest, 1)
	mutex.Unlock()
}
