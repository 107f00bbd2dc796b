package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flickfinder/flickfinder/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health and metrics
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	api.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Auth
	api.HandleFunc("/auth/register", handler.Register).Methods("POST")
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")

	// Movies
	api.HandleFunc("/movies/search", handler.SearchMovies).Methods("GET")
	api.HandleFunc("/movies/trending", handler.GetTrending).Methods("GET")
	api.HandleFunc("/movies/{id:-?[0-9]+}", handler.GetMovie).Methods("GET")
	api.HandleFunc("/movies/{id:-?[0-9]+}/raw", handler.GetMovieRaw).Methods("GET")

	// Genres
	api.HandleFunc("/genres", handler.ListGenres).Methods("GET")
	api.HandleFunc("/genres/movies", handler.GetGenreMoviesByName).Methods("GET")
	api.HandleFunc("/genres/{id:-?[0-9]+}/movies", handler.GetGenreMovies).Methods("GET")

	// Posters
	api.HandleFunc("/posters/{id:-?[0-9]+}.png", handler.GetPoster).Methods("GET")

	// Session-scoped lists and recommendations
	me := api.PathPrefix("/me").Subrouter()
	me.Use(handler.tokens.Middleware)

	favorites := handler.favoritesHandlers()
	me.HandleFunc("/favorites", favorites.Get).Methods("GET")
	me.HandleFunc("/favorites", favorites.Replace).Methods("PUT")
	me.HandleFunc("/favorites", favorites.Add).Methods("POST")
	me.HandleFunc("/favorites/{id:-?[0-9]+}", favorites.Remove).Methods("DELETE")

	watchlist := handler.watchlistHandlers()
	me.HandleFunc("/watchlist", watchlist.Get).Methods("GET")
	me.HandleFunc("/watchlist", watchlist.Replace).Methods("PUT")
	me.HandleFunc("/watchlist", watchlist.Add).Methods("POST")
	me.HandleFunc("/watchlist/{id:-?[0-9]+}", watchlist.Remove).Methods("DELETE")

	me.HandleFunc("/recommendations", handler.GetRecommendations).Methods("GET")

	// Enable CORS
	r.Use(corsMiddleware)

	// Logging middleware
	r.Use(loggingMiddleware(handler.logger))

	return r
}
