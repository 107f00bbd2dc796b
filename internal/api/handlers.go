package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/flickfinder/flickfinder/internal/auth"
	"github.com/flickfinder/flickfinder/internal/cache"
	"github.com/flickfinder/flickfinder/internal/models"
	"github.com/flickfinder/flickfinder/internal/services"
)

// Messages shown instead of an empty list.
const (
	MsgNoMovies          = "No movies found."
	MsgNoTrending        = "No trending movies found."
	MsgNoGenreMovies     = "No movies found for selected genre."
	MsgNoRecommendations = "No recommendations available"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Catalog     *services.CatalogService
	Posters     *cache.PosterCache
	Favorites   services.ListStore
	Watchlist   services.ListStore
	Credentials auth.CredentialStore
	Tokens      *auth.TokenManager
	DB          HealthChecker
	Logger      *slog.Logger
}

type Handler struct {
	catalog     *services.CatalogService
	posters     *cache.PosterCache
	favorites   services.ListStore
	watchlist   services.ListStore
	credentials auth.CredentialStore
	tokens      *auth.TokenManager
	db          HealthChecker
	logger      *slog.Logger
}

func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:     deps.Catalog,
		posters:     deps.Posters,
		favorites:   deps.Favorites,
		watchlist:   deps.Watchlist,
		credentials: deps.Credentials,
		tokens:      deps.Tokens,
		db:          deps.DB,
		logger:      logger,
	}
}

// MovieListResponse wraps a movie list. Message is set when the list is empty.
type MovieListResponse struct {
	Movies  []models.Movie `json:"movies"`
	Count   int            `json:"count"`
	Message string         `json:"message,omitempty"`
}

// MovieDetailResponse is returned by GET /movies/{id}.
type MovieDetailResponse struct {
	ID        int                    `json:"id"`
	Summary   string                 `json:"summary"`
	Detail    services.DetailSummary `json:"detail"`
	PosterURL string                 `json:"poster_url,omitempty"`
	ThumbURL  string                 `json:"thumb_url,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondMovies(w http.ResponseWriter, movies []models.Movie, emptyMessage string) {
	resp := MovieListResponse{Movies: movies, Count: len(movies)}
	if len(movies) == 0 {
		resp.Movies = []models.Movie{}
		resp.Message = emptyMessage
	}
	respondJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	return id, err == nil
}

// HealthCheck handles GET /api/v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.Health(r.Context()); err != nil {
			h.logger.Error("health: database ping failed", "error", err)
			status = "degraded"
			dbStatus = "unreachable"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":       status,
		"database":     dbStatus,
		"poster_cache": h.posters.Len(),
		"service":      "flickfinder",
	})
}

// SearchMovies handles GET /api/v1/movies/search?q=
func (h *Handler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	respondMovies(w, h.catalog.Search(r.Context(), query), MsgNoMovies)
}

// GetTrending handles GET /api/v1/movies/trending
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	respondMovies(w, h.catalog.Trending(r.Context()), MsgNoTrending)
}

// GetMovie handles GET /api/v1/movies/{id}
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid movie ID")
		return
	}

	detail, ok := h.catalog.Details(r.Context(), id)
	if !ok {
		respondError(w, http.StatusBadGateway, services.DetailsErrorText)
		return
	}

	respondJSON(w, http.StatusOK, MovieDetailResponse{
		ID:        id,
		Summary:   detail.String(),
		Detail:    detail,
		PosterURL: h.catalog.PosterURL(services.PosterDetailSize, detail.PosterPath),
		ThumbURL:  h.catalog.PosterURL(services.PosterThumbSize, detail.PosterPath),
	})
}

// GetMovieRaw handles GET /api/v1/movies/{id}/raw. The body is the catalog's
// detail JSON unchanged, or {} when it could not be fetched.
func (h *Handler) GetMovieRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid movie ID")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.catalog.DetailsRaw(r.Context(), id)))
}

// ListGenres handles GET /api/v1/genres
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres := h.catalog.Genres(r.Context())
	if genres.Failed() {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  models.GenresFailedMsg,
			"genres": genres,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

// GetGenreMovies handles GET /api/v1/genres/{id}/movies
func (h *Handler) GetGenreMovies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid genre ID")
		return
	}
	respondMovies(w, h.catalog.ByGenre(r.Context(), id), MsgNoGenreMovies)
}

// GetGenreMoviesByName handles GET /api/v1/genres/movies?name=
func (h *Handler) GetGenreMoviesByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "query parameter 'name' is required")
		return
	}
	id, ok := h.catalog.GenreIDByName(r.Context(), name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown genre: "+name)
		return
	}
	respondMovies(w, h.catalog.ByGenre(r.Context(), id), MsgNoGenreMovies)
}

// GetPoster handles GET /api/v1/posters/{id}.png. Uncached posters are served
// as the placeholder.
func (h *Handler) GetPoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid movie ID")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, cached := h.posters.Get(id); cached {
		w.Header().Set("Cache-Control", "public, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	if err := h.posters.EncodePNG(w, id); err != nil {
		h.logger.Error("posters: encode failed", "movie_id", id, "error", err)
	}
}

// GetRecommendations handles GET /api/v1/me/recommendations. Preferences are
// the genres of the user's favorites and watchlist.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := auth.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}

	favorites, err := h.favorites.Load(ctx, session.UserID)
	if err != nil {
		h.logger.Error("recommendations: load favorites failed", "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}
	watchlist, err := h.watchlist.Load(ctx, session.UserID)
	if err != nil {
		h.logger.Error("recommendations: load watchlist failed", "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}

	prefs := h.catalog.PreferredGenres(ctx, favorites, watchlist)
	rec, err := h.catalog.RecommendReport(ctx, prefs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.posters.Prefetch(rec.Movies)

	resp := struct {
		MovieListResponse
		Preferences []string `json:"preferences"`
		Skipped     int      `json:"skipped"`
	}{
		MovieListResponse: MovieListResponse{Movies: rec.Movies, Count: len(rec.Movies)},
		Preferences:       prefs.Names(),
		Skipped:           len(rec.Skipped),
	}
	if len(rec.Movies) == 0 {
		resp.Movies = []models.Movie{}
		resp.Message = MsgNoRecommendations
	}
	respondJSON(w, http.StatusOK, resp)
}
