package session

import (
	"chatapp-client/internal/docstore"
	"chatapp-client/internal/docstore/docstoretest"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/models"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const defaultRole = "everyone"

func newTestStore(t *testing.T, db *docstoretest.Store, presenceLimit int) *Store {
	t.Helper()

	sugar := zap.NewNop().Sugar()
	kv := keyValue.New(sugar, nil, true)
	t.Cleanup(kv.Close)

	s := New(sugar, db, keyValue.NewProfiles(kv, db, time.Minute), presenceLimit)
	t.Cleanup(s.Close)
	return s
}

func put(t *testing.T, db *docstoretest.Store, path string, v any) {
	t.Helper()

	data, err := docstore.Encode(v)
	require.NoError(t, err)
	require.NoError(t, db.Set(context.Background(), path, data))
}

func seedServer(t *testing.T, db *docstoretest.Store, serverID string, channels ...models.Channel) {
	t.Helper()

	put(t, db, models.ServerPath(serverID), models.Server{ID: serverID, Name: "Server " + serverID, OwnerID: "owner", DefaultRoleID: defaultRole})
	put(t, db, models.RolePath(serverID, defaultRole), models.Role{ID: defaultRole, Name: "everyone", IsDefault: true})
	put(t, db, models.MemberPath(serverID, "owner"), models.Member{ServerID: serverID, UserID: "owner", DisplayName: "Owner", Roles: []string{defaultRole}})
	for _, channel := range channels {
		put(t, db, models.ChannelPath(serverID, channel.ID), channel)
	}
}

func text(id string, position int) models.Channel {
	return models.Channel{ID: id, Name: id, Type: models.ChannelTypeText, Position: position}
}

func voice(id string, position int) models.Channel {
	return models.Channel{ID: id, Name: id, Type: models.ChannelTypeVoice, Position: position}
}

func countOps(db *docstoretest.Store, op string) int {
	count := 0
	for _, o := range db.Ops() {
		if o == op {
			count++
		}
	}
	return count
}

func channelIDs(channels []models.Channel) []string {
	ids := make([]string, 0, len(channels))
	for _, channel := range channels {
		ids = append(ids, channel.ID)
	}
	return ids
}

func presenceIDs(t *testing.T, db *docstoretest.Store) []string {
	t.Helper()

	queries := db.ActiveQueries(models.PresenceCollection)
	require.Len(t, queries, 1, "expected exactly one live presence watch")
	ids := slices.Clone(queries[0].IDs)
	slices.Sort(ids)
	return ids
}

func TestSelectServerIsIdempotent(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "s1", text("t1", 0), voice("v1", 1))
	s := newTestStore(t, db, 30)
	ctx := context.Background()

	require.NoError(t, s.SelectServer(ctx, "s1"))
	require.NoError(t, s.SelectServer(ctx, "s1"))

	assert.Equal(t, 1, countOps(db, "get servers/s1"))
	for _, collection := range []string{models.ChannelsCollection, models.RolesCollection, models.MembersCollection, models.BadgesCollection} {
		assert.Equal(t, 1, db.WatchesOpened(models.SubcollectionPath("s1", collection)), collection)
	}
	assert.Equal(t, 1, db.WatchesOpened(models.PresenceCollection))
	assert.Equal(t, 5, db.ActiveWatches())

	state := s.State()
	assert.Equal(t, "s1", state.SelectedServerID)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, []string{"t1", "v1"}, channelIDs(state.Channels))
	require.NotNil(t, state.Server)
	assert.Equal(t, "Server s1", state.Server.Name)
}

func TestSwapReleasesPreviousWatches(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "a", text("a-text", 0), voice("a-voice", 1))
	seedServer(t, db, "b", text("b-text", 0))
	s := newTestStore(t, db, 30)
	ctx := context.Background()

	require.NoError(t, s.SelectServer(ctx, "a"))
	require.NoError(t, s.SelectServer(ctx, "b"))

	for _, collection := range []string{models.ChannelsCollection, models.RolesCollection, models.MembersCollection, models.BadgesCollection} {
		path := models.SubcollectionPath("a", collection)
		assert.Equal(t, 1, db.WatchesClosed(path), collection)
		assert.Empty(t, db.ActiveQueries(path), collection)
	}
	assert.Equal(t, 1, db.WatchesClosed(models.PresenceCollection))
	assert.Empty(t, db.ActiveQueries(models.PresenceCollection))

	put(t, db, models.ChannelPath("a", "late"), text("late", 5))

	state := s.State()
	assert.Equal(t, "b", state.SelectedServerID)
	assert.Equal(t, []string{"b-text"}, channelIDs(state.Channels))
	assert.Empty(t, state.VoicePresence)
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "a", text("a-text", 0))
	seedServer(t, db, "b", text("b-text", 0))
	s := newTestStore(t, db, 30)
	ctx := context.Background()

	require.NoError(t, s.SelectServer(ctx, "a"))
	s.mutex.RLock()
	oldGeneration := s.generation
	s.mutex.RUnlock()

	require.NoError(t, s.SelectServer(ctx, "b"))

	// a response for the old selection that raced the unsubscribe
	s.channelsListener(oldGeneration)([]docstore.Document{{ID: "ghost", Data: map[string]any{"name": "ghost", "type": "text"}}}, nil)
	s.membersListener(oldGeneration, "a")([]docstore.Document{{ID: "ghost", Data: map[string]any{}}}, nil)

	state := s.State()
	assert.Equal(t, []string{"b-text"}, channelIDs(state.Channels))
	for _, member := range state.Members {
		assert.NotEqual(t, "ghost", member.UserID)
	}
}

func TestHomeSelectionReleasesEverything(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "s1", text("t1", 0), voice("v1", 1))
	s := newTestStore(t, db, 30)
	ctx := context.Background()

	require.NoError(t, s.SelectServer(ctx, "s1"))
	require.NoError(t, s.SelectServer(ctx, ""))

	assert.Equal(t, 0, db.ActiveWatches())

	state := s.State()
	assert.Empty(t, state.SelectedServerID)
	assert.Nil(t, state.Server)
	assert.Empty(t, state.Channels)
	assert.Empty(t, state.Members)
	assert.False(t, state.Loading)
}

func TestSelectMissingServer(t *testing.T) {
	db := docstoretest.New()
	s := newTestStore(t, db, 30)

	err := s.SelectServer(context.Background(), "missing")
	require.ErrorIs(t, err, ErrServerNotFound)

	state := s.State()
	assert.Equal(t, "missing", state.SelectedServerID)
	assert.False(t, state.Loading, "loading must be cleared on the not-found path")
	assert.NotEmpty(t, state.Error)
	assert.Equal(t, 0, db.ActiveWatches())
}

func TestSelectRetriesAfterFailedLoad(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "S", text("T1", 0))
	s := newTestStore(t, db, 30)
	ctx := context.Background()

	db.FailOn(docstoretest.OpGet, models.ServerPath("S"), errors.New("unavailable"))
	err := s.SelectServer(ctx, "S")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrServerNotFound)
	assert.NotEmpty(t, s.State().Error)
	assert.Equal(t, 0, db.ActiveWatches())

	db.ClearFailures()
	require.NoError(t, s.SelectServer(ctx, "S"))

	state := s.State()
	assert.Empty(t, state.Error)
	require.NotNil(t, state.Server)
	assert.Len(t, state.Channels, 1)
	assert.Equal(t, 4, db.ActiveWatches())

	// a loaded selection stays idempotent
	require.NoError(t, s.SelectServer(ctx, "S"))
	assert.Equal(t, 1, db.WatchesOpened(models.SubcollectionPath("S", models.ChannelsCollection)))
}

func TestVoiceSubscriptionFollowsVoiceChannelSet(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "S", voice("V1", 0), text("T1", 1))
	s := newTestStore(t, db, 30)

	require.NoError(t, s.SelectServer(context.Background(), "S"))
	assert.Equal(t, 1, db.WatchesOpened(models.PresenceCollection))
	assert.Equal(t, []string{"V1"}, presenceIDs(t, db))

	put(t, db, models.ChannelPath("S", "V2"), voice("V2", 2))
	assert.Equal(t, 2, db.WatchesOpened(models.PresenceCollection))
	assert.Equal(t, 1, db.WatchesClosed(models.PresenceCollection))
	assert.Equal(t, []string{"V1", "V2"}, presenceIDs(t, db))

	renamed := text("T1", 1)
	renamed.Name = "general-chat"
	put(t, db, models.ChannelPath("S", "T1"), renamed)
	assert.Equal(t, 2, db.WatchesOpened(models.PresenceCollection), "text channel rename must not resubscribe")
	assert.Equal(t, 1, db.WatchesClosed(models.PresenceCollection))

	require.NoError(t, db.Delete(context.Background(), models.ChannelPath("S", "V2")))
	assert.Equal(t, 3, db.WatchesOpened(models.PresenceCollection))
	assert.Equal(t, []string{"V1"}, presenceIDs(t, db))

	require.NoError(t, db.Delete(context.Background(), models.ChannelPath("S", "V1")))
	assert.Empty(t, db.ActiveQueries(models.PresenceCollection), "no voice channels means no presence watch")
}

func TestVoicePresenceIsDelivered(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "S", voice("V1", 0), voice("V2", 1))
	s := newTestStore(t, db, 30)

	require.NoError(t, s.SelectServer(context.Background(), "S"))

	put(t, db, models.PresencePath("V1"), models.VoicePresence{Users: []models.PresenceEntry{{UserID: "u1", Username: "Ada"}}})
	put(t, db, models.PresencePath("elsewhere"), models.VoicePresence{Users: []models.PresenceEntry{{UserID: "u9"}}})

	state := s.State()
	require.Len(t, state.VoicePresence["V1"], 1)
	assert.Equal(t, "Ada", state.VoicePresence["V1"][0].Username)
	assert.NotContains(t, state.VoicePresence, "elsewhere")

	require.NoError(t, db.Delete(context.Background(), models.ChannelPath("S", "V1")))
	assert.NotContains(t, s.State().VoicePresence, "V1")
}

func TestPresenceWatchIsCapped(t *testing.T) {
	db := docstoretest.New()

	var channels []models.Channel
	var want []string
	for i := 0; i < 35; i++ {
		id := fmt.Sprintf("v%02d", i)
		channels = append(channels, voice(id, i))
		if i < 30 {
			want = append(want, id)
		}
	}
	seedServer(t, db, "big", channels...)
	s := newTestStore(t, db, 0)

	require.NoError(t, s.SelectServer(context.Background(), "big"))
	assert.Equal(t, want, presenceIDs(t, db))
	assert.Len(t, s.State().Channels, 35)
}

func TestMemberNamesAreRepaired(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "s1", text("t1", 0))
	put(t, db, models.UserPath("u2"), models.User{DisplayName: "Bob", PhotoURL: "https://example.com/bob.png"})
	put(t, db, models.MemberPath("s1", "u2"), models.Member{ServerID: "s1", UserID: "u2", Roles: []string{defaultRole}})
	put(t, db, models.MemberPath("s1", "ghost"), models.Member{ServerID: "s1", UserID: "ghost"})
	s := newTestStore(t, db, 30)

	require.NoError(t, s.SelectServer(context.Background(), "s1"))

	require.Eventually(t, func() bool {
		member, ok := s.Member("u2")
		return ok && member.DisplayName == "Bob"
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		doc, err := db.Get(context.Background(), models.MemberPath("s1", "u2"))
		return err == nil && doc.Data["displayName"] == "Bob"
	}, 2*time.Second, 10*time.Millisecond)

	ghost, ok := s.Member("ghost")
	require.True(t, ok, "a member whose profile can't be found still renders")
	assert.Equal(t, models.UnknownUserName, ghost.Name())
}

func TestCanUserViewChannelUsesDefaultRole(t *testing.T) {
	db := docstoretest.New()
	deny := false
	allow := true
	secret := text("secret", 1)
	secret.PermissionOverwrites = map[string]models.Overwrite{
		defaultRole: {View: &deny},
		"staff":     {View: &allow},
	}
	seedServer(t, db, "s1", text("general", 0), secret)
	put(t, db, models.MemberPath("s1", "u1"), models.Member{ServerID: "s1", UserID: "u1", DisplayName: "Staffer", Roles: []string{"staff"}})
	s := newTestStore(t, db, 30)

	require.NoError(t, s.SelectServer(context.Background(), "s1"))

	assert.False(t, s.CanUserViewChannel(secret, nil))
	assert.True(t, s.CanUserViewChannel(secret, []string{"staff"}))

	assert.Equal(t, []string{"general"}, channelIDs(s.VisibleChannels("owner")))
	assert.Equal(t, []string{"general", "secret"}, channelIDs(s.VisibleChannels("u1")))
}

func TestObserversSeeChanges(t *testing.T) {
	db := docstoretest.New()
	seedServer(t, db, "s1", text("t1", 0))
	s := newTestStore(t, db, 30)

	var mu sync.Mutex
	var seen []State
	unsubscribe := s.Subscribe(func(state State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, state)
	})

	require.NoError(t, s.SelectServer(context.Background(), "s1"))

	mu.Lock()
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	count := len(seen)
	mu.Unlock()

	assert.Equal(t, "s1", last.SelectedServerID)
	assert.False(t, last.Loading)

	unsubscribe()
	put(t, db, models.ChannelPath("s1", "t2"), text("t2", 1))

	mu.Lock()
	assert.Equal(t, count, len(seen))
	mu.Unlock()
}
