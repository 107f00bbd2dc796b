package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/flickfinder/flickfinder/internal/api"
	"github.com/flickfinder/flickfinder/internal/auth"
	"github.com/flickfinder/flickfinder/internal/cache"
	"github.com/flickfinder/flickfinder/internal/config"
	"github.com/flickfinder/flickfinder/internal/database"
	"github.com/flickfinder/flickfinder/internal/logging"
	"github.com/flickfinder/flickfinder/internal/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting FlickFinder API Server...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	logger, closeLog := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer closeLog()
	slog.SetDefault(logger)

	// Connect to database
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("✓ Database connection established (%s)", cfg.DatabaseDriver)

	// Initialize stores
	favorites, err := database.NewFavoritesStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize favorites store: %v", err)
	}
	watchlist, err := database.NewWatchlistStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize watchlist store: %v", err)
	}
	credentials := auth.NewFileCredentialStore(afero.NewOsFs(), cfg.UsersFile)
	if cfg.JWTSecret == "" {
		log.Println("⚠️  WARNING: JWT_SECRET not set, sessions will not survive a restart")
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)

	// Catalog
	tmdbClient := services.NewTMDBClient(cfg.TMDBAPIToken,
		services.WithBaseURL(cfg.TMDBBaseURL),
		services.WithImageBaseURL(cfg.TMDBImageBaseURL),
		services.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	engine := services.NewRecommendationEngine(tmdbClient, cfg.RecommendConcurrency, logger)
	catalog := services.NewCatalogService(tmdbClient, engine, logger)

	// Poster thumbnails
	store, err := cache.NewStore(cfg.PosterCacheCapacity)
	if err != nil {
		log.Fatalf("Failed to create poster store: %v", err)
	}
	posters := cache.NewPosterCache(store,
		cache.WithImageBaseURL(cfg.TMDBImageBaseURL),
		cache.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		cache.WithWorkers(cfg.PosterWorkers),
		cache.WithFetchTimeout(cfg.PosterFetchTimeout),
		cache.WithLogger(logger),
	)

	handler := api.NewHandler(api.Deps{
		Catalog:     catalog,
		Posters:     posters,
		Favorites:   favorites,
		Watchlist:   watchlist,
		Credentials: credentials,
		Tokens:      tokens,
		DB:          db,
		Logger:      logger,
	})
	router := api.SetupRoutes(handler)
	log.Println("✓ REST API enabled at /api/v1")

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // recommendations fan out to many detail calls
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
