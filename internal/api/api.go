package api

import (
	"context"
	"net/http"

	"github.com/google/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/susu3304/lotterybot/internal/config"
	"github.com/susu3304/lotterybot/internal/lottery"
	"golang.org/x/oauth2"
)

type API struct {
	router      *mux.Router
	lottery     *lottery.Manager
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	gatherer    prometheus.Gatherer
	server      *http.Server

	// guildAccess resolves the caller's standing in a guild. Replaced in tests.
	guildAccess func(accessToken, guildID string) guildAccess
}

func New(cfg *config.Config, manager *lottery.Manager, gatherer prometheus.Gatherer) *API {
	api := &API{
		router:    mux.NewRouter(),
		lottery:   manager,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		gatherer:  gatherer,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}
	api.guildAccess = api.discordGuildAccess

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/guilds/{guild_id}/lottery", a.handlePublicLottery).Methods("GET")
	a.router.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/lottery", a.handleGetLottery).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/lottery", a.handleDeleteLottery).Methods("DELETE")
	protected.HandleFunc("/guilds/{guild_id}/lottery/start", a.handleStartLottery).Methods("POST")
	protected.HandleFunc("/guilds/{guild_id}/lottery/stop", a.handleStopLottery).Methods("POST")
	protected.HandleFunc("/guilds/{guild_id}/lottery/prizes/{level}", a.handleSetPrize).Methods("PUT")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false for security
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start blocks serving HTTP until Shutdown is called.
func (a *API) Start() error {
	a.server = &http.Server{Addr: a.config.WebBind, Handler: a.Handler()}
	logger.Infof("API server listening on http://%s", a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
