package handlers

import (
	"chatapp-client/internal/actions"
	"chatapp-client/internal/hub"
	"chatapp-client/internal/keyValue"
	"chatapp-client/internal/models"
	"chatapp-client/internal/session"
	"chatapp-client/internal/voice"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps is everything the local api talks to.
type Deps struct {
	Sugar    *zap.SugaredLogger
	Session  *session.Store
	Actions  *actions.Service
	Profiles *keyValue.Profiles
	Settings *keyValue.Settings
	Tokens   *voice.TokenIssuer
	Presence *voice.Presence
	Hub      *hub.Hub
}

var sugar *zap.SugaredLogger
var sessionStore *session.Store
var actionService *actions.Service
var profiles *keyValue.Profiles
var settings *keyValue.Settings
var tokens *voice.TokenIssuer
var presence *voice.Presence
var wsHub *hub.Hub
var liveKitURL string

func NewRouter(cfg *models.ConfigFile, deps Deps) chi.Router {
	sugar = deps.Sugar
	sessionStore = deps.Session
	actionService = deps.Actions
	profiles = deps.Profiles
	settings = deps.Settings
	tokens = deps.Tokens
	presence = deps.Presence
	wsHub = deps.Hub
	liveKitURL = cfg.LiveKitURL

	r := chi.NewRouter()
	r.Use(AllowCors(cfg.AllowedOrigins))
	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(60 * time.Second))
		api.Use(UserIdentifier)

		api.Route("/session", func(r chi.Router) {
			r.Post("/select", SelectServer)
			r.Get("/state", GetSessionState)
			r.Get("/channels", GetVisibleChannels)
		})

		api.Route("/user", func(r chi.Router) {
			r.Get("/fetch", GetUserInfo)
			r.Post("/update", UpdateUserInfo)
		})

		api.Route("/server", func(r chi.Router) {
			r.Post("/create", CreateServer)
			r.Post("/update", UpdateServer)
			r.Post("/delete", DeleteServer)
			r.Post("/join", JoinServer)
			r.Post("/leave", LeaveServer)
		})

		api.Route("/channel", func(r chi.Router) {
			r.Post("/create", CreateChannel)
			r.Post("/update", UpdateChannel)
			r.Post("/delete", DeleteChannel)
			r.Post("/overwrite", SetChannelOverwrite)
			r.Post("/reorder", ReorderChannels)
		})

		api.Route("/role", func(r chi.Router) {
			r.Post("/create", CreateRole)
			r.Post("/update", UpdateRole)
			r.Post("/delete", DeleteRole)
			r.Post("/reorder", ReorderRoles)
			r.Post("/assign", AssignRole)
			r.Post("/remove", RemoveRole)
		})

		api.Route("/members", func(r chi.Router) {
			r.Post("/kick", KickMember)
			r.Post("/ban", BanMember)
			r.Post("/unban", UnbanMember)
			r.Get("/bans", GetBanList)
		})

		api.Route("/invite", func(r chi.Router) {
			r.Post("/create", CreateInvite)
			r.Post("/redeem", RedeemInvite)
			r.Post("/delete", DeleteInvite)
			r.Get("/fetch", GetInviteList)
		})

		api.Route("/badge", func(r chi.Router) {
			r.Post("/create", CreateBadge)
			r.Post("/delete", DeleteBadge)
			r.Post("/award", AwardBadge)
			r.Post("/revoke", RevokeBadge)
		})

		api.Route("/voice", func(r chi.Router) {
			r.Post("/token", CreateVoiceToken)
			r.Post("/join", JoinVoice)
			r.Post("/leave", LeaveVoice)
		})

		api.Route("/settings", func(r chi.Router) {
			r.Get("/fetch", GetSetting)
			r.Post("/update", UpdateSetting)
		})
	})

	r.With(UserIdentifier).Get("/ws", HandleWebSocket)

	return r
}

func Setup(cfg *models.ConfigFile, deps Deps) error {
	r := NewRouter(cfg, deps)

	address := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)
	sugar.Infof("Local api listening on %s", address)

	return http.ListenAndServe(address, r)
}
