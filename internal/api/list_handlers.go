package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/flickfinder/flickfinder/internal/auth"
	"github.com/flickfinder/flickfinder/internal/database"
	"github.com/flickfinder/flickfinder/internal/models"
	"github.com/flickfinder/flickfinder/internal/services"
)

// listHandlers serves one saved list (favorites or watchlist) for the session user.
type listHandlers struct {
	h     *Handler
	name  string
	store services.ListStore
}

func (h *Handler) favoritesHandlers() *listHandlers {
	return &listHandlers{h: h, name: "favorites", store: h.favorites}
}

func (h *Handler) watchlistHandlers() *listHandlers {
	return &listHandlers{h: h, name: "watchlist", store: h.watchlist}
}

// Get handles GET /api/v1/me/{list}
func (l *listHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}

	movies, err := l.store.Load(r.Context(), session.UserID)
	if err != nil {
		l.h.logger.Error("lists: load failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load "+l.name)
		return
	}
	respondJSON(w, http.StatusOK, MovieListResponse{Movies: movies, Count: len(movies)})
}

// Replace handles PUT /api/v1/me/{list}. The body is the complete list.
func (l *listHandlers) Replace(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}

	var movies []models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movies); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i := range movies {
		if err := sanitizeMovie(&movies[i]); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := l.store.Save(r.Context(), session.UserID, movies); err != nil {
		if errors.Is(err, database.ErrNilList) {
			respondError(w, http.StatusBadRequest, "a list is required")
			return
		}
		l.h.logger.Error("lists: save failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save "+l.name)
		return
	}
	respondJSON(w, http.StatusOK, MovieListResponse{Movies: movies, Count: len(movies)})
}

// Add handles POST /api/v1/me/{list}. Adding a movie that is already on the
// list is a conflict.
func (l *listHandlers) Add(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}

	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sanitizeMovie(&movie); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	movies, err := l.store.Load(ctx, session.UserID)
	if err != nil {
		l.h.logger.Error("lists: load failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load "+l.name)
		return
	}
	if models.ContainsMovie(movies, movie) {
		respondError(w, http.StatusConflict, "This movie is already in your "+l.name+".")
		return
	}

	movies = append(movies, movie)
	if err := l.store.Save(ctx, session.UserID, movies); err != nil {
		l.h.logger.Error("lists: save failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save "+l.name)
		return
	}
	respondJSON(w, http.StatusCreated, MovieListResponse{Movies: movies, Count: len(movies)})
}

// Remove handles DELETE /api/v1/me/{list}/{id}
func (l *listHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no session")
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid movie ID")
		return
	}

	ctx := r.Context()
	movies, err := l.store.Load(ctx, session.UserID)
	if err != nil {
		l.h.logger.Error("lists: load failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load "+l.name)
		return
	}

	remaining, removed := models.RemoveMovie(movies, id)
	if !removed {
		respondError(w, http.StatusNotFound, "movie is not in your "+l.name)
		return
	}
	if err := l.store.Save(ctx, session.UserID, remaining); err != nil {
		l.h.logger.Error("lists: save failed", "list", l.name, "user", session.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save "+l.name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sanitizeMovie checks the identifying fields and fills display defaults.
func sanitizeMovie(m *models.Movie) error {
	if m.ID == 0 {
		return errors.New("movie id is required")
	}
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return errors.New("movie title is required")
	}
	if m.PosterPath == "" {
		m.PosterPath = models.NoPoster
	}
	if m.ReleaseDate == "" {
		m.ReleaseDate = models.UnknownRelease
	}
	if m.Overview == "" {
		m.Overview = models.NoOverview
	}
	if m.Popularity < 0 {
		m.Popularity = 0
	}
	if m.Rating < 0 {
		m.Rating = 0
	}
	m.Genres = []string{}
	return nil
}
