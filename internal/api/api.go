package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/tmcewan/cashgamebot/internal/config"
	"github.com/tmcewan/cashgamebot/internal/ledger"
	"golang.org/x/oauth2"
)

type API struct {
	router      *mux.Router
	ledger      *ledger.Service
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
}

func New(cfg *config.Config, svc *ledger.Service) *API {
	api := &API{
		router:    mux.NewRouter(),
		ledger:    svc,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public read endpoints
	a.router.HandleFunc("/api/leaderboard", a.handleLeaderboard).Methods("GET")
	a.router.HandleFunc("/api/players", a.handleListPlayers).Methods("GET")
	a.router.HandleFunc("/api/players/{player_id}", a.handleGetPlayer).Methods("GET")
	a.router.HandleFunc("/api/players/{player_id}/debts", a.handlePlayerDebts).Methods("GET")
	a.router.HandleFunc("/api/session", a.handleGetSession).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/refresh", a.handleRefresh).Methods("POST")
	protected.HandleFunc("/debts", a.handleHistory).Methods("GET")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
