package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fkhayef/cinecircle/internal/api"
	"github.com/fkhayef/cinecircle/internal/config"
	"github.com/fkhayef/cinecircle/internal/database"
	"github.com/fkhayef/cinecircle/internal/membership"
	"github.com/fkhayef/cinecircle/internal/notification"
	"github.com/fkhayef/cinecircle/internal/roster"
	mw "github.com/fkhayef/cinecircle/pkg/middleware"

	_ "github.com/fkhayef/cinecircle/docs"
)

// @title        CineCircle Membership Agent API
// @version      1.0
// @description  Local control API the CineCircle views use to resolve and change group membership.
// @BasePath     /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Resolve the viewer identity from the session token
	viewerID, err := mw.DecodeToken(cfg.SessionToken)
	if err != nil {
		log.Fatalf("SESSION_TOKEN does not decode to a user: %v", err)
	}

	// Open the local hint cache
	db, err := database.Open(cfg.CachePath)
	if err != nil {
		log.Fatalf("Failed to open local cache: %v", err)
	}
	defer db.Close()

	log.Printf("Local cache ready at %s", cfg.CachePath)

	// Collaborator client for the community server
	client := api.NewClient(cfg.ServerBaseURL, cfg.SessionToken)

	// Notification feature
	noticeService := notification.NewService(cfg.NoticeBuffer)
	noticeHandler := notification.NewHandler(noticeService)

	// Membership feature
	hints := membership.NewRepository(db)
	registry := membership.NewRegistry(client, hints, noticeService, viewerID, cfg.CacheTTL)
	membershipHandler := membership.NewHandler(registry)

	// Roster feature
	rosterService := roster.NewService(client, registry, noticeService, viewerID)
	rosterHandler := roster.NewHandler(rosterService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(mw.ViewerMiddleware(viewerID))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/membership", membershipHandler.Routes())
		r.Mount("/roster", rosterHandler.Routes())
		r.Mount("/notices", noticeHandler.Routes())
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "7070"
	}

	log.Printf("Agent listening on port %s (server: %s)", port, cfg.ServerBaseURL)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Agent failed to start: %v", err)
	}
}
