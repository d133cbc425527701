package handlers

import (
	"bytes"
	"chatapp-client/internal/actions"
	"chatapp-client/internal/docstore/docstoretest"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/session"
	"chatapp-client/internal/snowflake"
	"chatapp-client/internal/voice"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	router chi.Router
	tokens *voice.TokenIssuer
	db     *docstoretest.Store
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	sugar := zap.NewNop().Sugar()
	db := docstoretest.New()

	ids, err := snowflake.New(3)
	require.NoError(t, err)

	cfg := &models.ConfigFile{
		DefaultRoleName:     "everyone",
		DefaultTextChannel:  "general",
		DefaultVoiceChannel: "General",
		LiveKitURL:          "wss://voice.example.com",
		AllowedOrigins:      []string{"http://localhost:5173"},
	}

	kv := keyValue.New(sugar, nil, true)
	t.Cleanup(kv.Close)
	profileCache := keyValue.NewProfiles(kv, db, time.Minute)

	store := session.New(sugar, db, profileCache, 30)
	t.Cleanup(store.Close)

	issuer, err := voice.NewTokenIssuer("APIkey", "secret-secret-secret", time.Hour)
	require.NoError(t, err)

	router := NewRouter(cfg, Deps{
		Sugar:    sugar,
		Session:  store,
		Actions:  actions.New(sugar, db, ids, cfg),
		Profiles: profileCache,
		Settings: keyValue.NewSettings(kv),
		Tokens:   issuer,
		Presence: voice.NewPresence(sugar, db),
		Hub:      hub.New(sugar, ids, cfg.AllowedOrigins),
	})

	return testApp{router: router, tokens: issuer, db: db}
}

func (a testApp) do(t *testing.T, method string, target string, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, target, reader)
	if userID != "" {
		r.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRequestsNeedAUser(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/session/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCorsOnlyTrustsKnownOrigins(t *testing.T) {
	app := newTestApp(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodOptions, "/api/server/delete", nil)
		r.Header.Set("Origin", origin)
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		r.Header.Set("Access-Control-Request-Headers", "X-User-ID")
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, r)
		return w
	}

	tests := []struct {
		origin string
		code   int
	}{
		{"file://", http.StatusOK},
		{"http://localhost:5173", http.StatusOK},
		{"https://evil.example", http.StatusForbidden},
		{"null", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			w := preflight(tt.origin)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	// a simple request with the uid parameter skips preflight in the browser
	created := decode[models.Result](t, app.do(t, http.MethodPost, "/api/server/create", "owner", map[string]string{"name": "Test"}))
	require.True(t, created.Success)

	r := httptest.NewRequest(http.MethodPost, "/api/server/delete?uid=owner&serverID="+created.ID, nil)
	r.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, app.db.Exists(models.ServerPath(created.ID)))
}

func TestServerLifecycleThroughApi(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/server/create", "owner", map[string]string{"name": "Test"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[models.Result](t, w)
	require.True(t, created.Success)

	w = app.do(t, http.MethodPost, "/api/session/select", "owner", map[string]string{"serverId": created.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[session.State](t, w)
	assert.Equal(t, created.ID, state.SelectedServerID)
	require.Len(t, state.Channels, 2)

	w = app.do(t, http.MethodGet, "/api/session/channels", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Channel](t, w), 2)

	w = app.do(t, http.MethodPost, "/api/channel/create?serverID="+created.ID, "stranger", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, decode[models.Result](t, w).Success)

	w = app.do(t, http.MethodPost, "/api/server/delete?serverID="+created.ID, "owner", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/session/state", "owner", nil)
	assert.Empty(t, decode[session.State](t, w).SelectedServerID, "deleting the selected server returns home")
}

func TestSelectUnknownServer(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/session/select", "owner", map[string]string{"serverId": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/api/session/select", "owner", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoiceToken(t *testing.T) {
	app := newTestApp(t)

	created := decode[models.Result](t, app.do(t, http.MethodPost, "/api/server/create", "owner", map[string]string{"name": "Test"}))
	require.True(t, created.Success)
	state := decode[session.State](t, app.do(t, http.MethodPost, "/api/session/select", "owner", map[string]string{"serverId": created.ID}))

	var voiceID, textID string
	for _, channel := range state.Channels {
		if channel.IsVoice() {
			voiceID = channel.ID
		} else {
			textID = channel.ID
		}
	}
	require.NotEmpty(t, voiceID)

	w := app.do(t, http.MethodPost, "/api/voice/token?channelID="+voiceID, "owner", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	response := decode[struct {
		Token      string `json:"token"`
		URL        string `json:"url"`
		CanPublish bool   `json:"canPublish"`
	}](t, w)
	assert.Equal(t, "wss://voice.example.com", response.URL)
	assert.True(t, response.CanPublish)

	claims, err := app.tokens.Verify(response.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Subject)
	assert.Equal(t, voiceID, claims.Video.Room)

	w = app.do(t, http.MethodPost, "/api/voice/token?channelID="+textID, "owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/api/voice/token?channelID="+voiceID, "stranger", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/voice/join?channelID="+voiceID, "owner", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, app.db.Exists(models.PresencePath(voiceID)))

	w = app.do(t, http.MethodGet, "/api/session/state", "owner", nil)
	presence := decode[session.State](t, w).VoicePresence[voiceID]
	require.Len(t, presence, 1)
	assert.Equal(t, "owner", presence[0].UserID)

	w = app.do(t, http.MethodPost, "/api/voice/leave?channelID="+voiceID, "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, app.db.Exists(models.PresencePath(voiceID)))
}

func TestSettings(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/settings/update", "u1", map[string]string{"key": "theme", "value": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/settings/fetch?key=theme", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", decode[map[string]string](t, w)["value"])

	w = app.do(t, http.MethodGet, "/api/settings/fetch", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileUpdate(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/user/update", "u1", map[string]string{"displayName": "Ada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/user/fetch?userID=self", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode[models.User](t, w).DisplayName)

	w = app.do(t, http.MethodPost, "/api/user/update", "u1", map[string]string{"displayName": "Ada L."})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/user/fetch", "u1", nil)
	assert.Equal(t, "Ada L.", decode[models.User](t, w).DisplayName, "cached profile is dropped on update")

	w = app.do(t, http.MethodPost, "/api/user/update", "u1", map[string]string{"displayName": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
