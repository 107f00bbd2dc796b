package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flickfinder/flickfinder/internal/models"
)

const (
	// DetailsErrorText is returned by DetailsSummary when the fetch fails.
	DetailsErrorText = "Error fetching movie details."
	// EmptyRawDetail is returned by DetailsRaw when the fetch fails.
	EmptyRawDetail = "{}"
)

// CatalogClient is the typed catalog surface the facade composes.
type CatalogClient interface {
	RecommendationSource
	SearchMovies(ctx context.Context, query string) (ListResult, error)
	DiscoverByGenre(ctx context.Context, genreID int) (ListResult, error)
	MovieDetail(ctx context.Context, tmdbID int) (DetailSummary, error)
	Genres(ctx context.Context) (models.GenreMap, error)
	PosterURL(size, path string) string
}

// ListStore persists one named movie list (favorites, watchlist) per user.
type ListStore interface {
	Save(ctx context.Context, userID int, movies []models.Movie) error
	Load(ctx context.Context, userID int) ([]models.Movie, error)
}

// CatalogService is the boundary between callers and the catalog: every
// network or parse failure is turned into an empty value here.
type CatalogService struct {
	client CatalogClient
	engine *RecommendationEngine
	logger *slog.Logger
}

func NewCatalogService(client CatalogClient, engine *RecommendationEngine, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewRecommendationEngine(client, defaultRecommendConcurrency, logger)
	}
	return &CatalogService{
		client: client,
		engine: engine,
		logger: logger,
	}
}

// Search returns movies whose titles match query. A blank query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string) []models.Movie {
	if strings.TrimSpace(query) == "" {
		return []models.Movie{}
	}
	res, err := s.client.SearchMovies(ctx, query)
	return s.listOrEmpty("search", res, err)
}

// Trending returns today's trending movies.
func (s *CatalogService) Trending(ctx context.Context) []models.Movie {
	res, err := s.client.TrendingMovies(ctx)
	return s.listOrEmpty("trending", res, err)
}

// ByGenre returns popular movies in a genre.
func (s *CatalogService) ByGenre(ctx context.Context, genreID int) []models.Movie {
	res, err := s.client.DiscoverByGenre(ctx, genreID)
	return s.listOrEmpty("discover", res, err)
}

// Details returns the normalized detail for a movie. ok is false when it
// could not be fetched or parsed.
func (s *CatalogService) Details(ctx context.Context, tmdbID int) (DetailSummary, bool) {
	d, err := s.client.MovieDetail(ctx, tmdbID)
	if err != nil {
		s.logger.Warn("catalog: movie detail failed", "movie_id", tmdbID, "error", err)
		return DetailSummary{}, false
	}
	return d, true
}

// DetailsSummary returns the formatted detail block for a movie.
func (s *CatalogService) DetailsSummary(ctx context.Context, tmdbID int) string {
	d, ok := s.Details(ctx, tmdbID)
	if !ok {
		return DetailsErrorText
	}
	return d.String()
}

// DetailsRaw returns the unmodified detail JSON for a movie, or "{}".
func (s *CatalogService) DetailsRaw(ctx context.Context, tmdbID int) string {
	data, err := s.client.MovieDetailRaw(ctx, tmdbID)
	if err != nil {
		s.logger.Warn("catalog: raw movie detail failed", "movie_id", tmdbID, "error", err)
		return EmptyRawDetail
	}
	return string(data)
}

// Genres returns the catalog's genre list, or the failure sentinel.
func (s *CatalogService) Genres(ctx context.Context) models.GenreMap {
	genres, err := s.client.Genres(ctx)
	if err != nil {
		s.logger.Warn("catalog: genre list failed", "error", err)
		return models.FailedGenreMap()
	}
	return genres
}

// GenreIDByName resolves a genre name against a fresh genre list.
func (s *CatalogService) GenreIDByName(ctx context.Context, name string) (int, bool) {
	genres := s.Genres(ctx)
	if genres.Failed() {
		return -1, false
	}
	return genres.IDByName(name)
}

// Recommend returns trending movies matching prefs. The only error is
// ErrNilPreferences.
func (s *CatalogService) Recommend(ctx context.Context, prefs models.PreferenceSet) ([]models.Movie, error) {
	rec, err := s.RecommendReport(ctx, prefs)
	if err != nil {
		return nil, err
	}
	return rec.Movies, nil
}

// RecommendReport is Recommend with the per-movie skip details.
func (s *CatalogService) RecommendReport(ctx context.Context, prefs models.PreferenceSet) (*Recommendation, error) {
	return s.engine.Recommend(ctx, prefs)
}

// PreferredGenres collects the genres of the given saved movies. Movies whose
// detail cannot be fetched contribute nothing.
func (s *CatalogService) PreferredGenres(ctx context.Context, saved ...[]models.Movie) models.PreferenceSet {
	prefs := models.NewPreferenceSet()
	seen := make(map[int]struct{})
	for _, list := range saved {
		for _, m := range list {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}

			data, err := s.client.MovieDetailRaw(ctx, m.ID)
			if err != nil {
				s.logger.Debug("catalog: preferred genres skipped movie", "movie_id", m.ID, "error", err)
				continue
			}
			genres, err := ExtractGenres(data)
			if err != nil {
				continue
			}
			for _, g := range genres {
				prefs.Add(g)
			}
		}
	}
	return prefs
}

// PosterURL exposes the client's image URL builder.
func (s *CatalogService) PosterURL(size, path string) string {
	return s.client.PosterURL(size, path)
}

func (s *CatalogService) listOrEmpty(op string, res ListResult, err error) []models.Movie {
	if err != nil {
		s.logger.Warn("catalog: list fetch failed", "op", op, "error", err)
		return []models.Movie{}
	}
	if len(res.Skipped) > 0 {
		s.logger.Warn("catalog: skipped malformed items", "op", op, "count", len(res.Skipped))
	}
	if res.Movies == nil {
		return []models.Movie{}
	}
	return res.Movies
}
