package services

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/iter"

	"github.com/flickfinder/flickfinder/internal/metrics"
	"github.com/flickfinder/flickfinder/internal/models"
)

const defaultRecommendConcurrency = 8

// RecommendationSource is the slice of the catalog the engine needs.
type RecommendationSource interface {
	TrendingMovies(ctx context.Context) (ListResult, error)
	MovieDetailRaw(ctx context.Context, tmdbID int) ([]byte, error)
}

// SkippedMovie is a trending movie dropped because its genres were unavailable.
type SkippedMovie struct {
	Movie models.Movie
	Err   error
}

// Recommendation is the outcome of one Recommend call. Skipped lets callers
// tell "no genre matched" apart from "genres could not be fetched".
type Recommendation struct {
	Movies      []models.Movie
	Skipped     []SkippedMovie
	TrendingErr error
}

// RecommendationEngine matches trending movies against a user's preferred genres.
type RecommendationEngine struct {
	source         RecommendationSource
	maxConcurrency int
	logger         *slog.Logger
}

// NewRecommendationEngine builds an engine. maxConcurrency bounds the number of
// detail fetches in flight; values below 1 use the default.
func NewRecommendationEngine(source RecommendationSource, maxConcurrency int, logger *slog.Logger) *RecommendationEngine {
	if maxConcurrency < 1 {
		maxConcurrency = defaultRecommendConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationEngine{
		source:         source,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

type genreOutcome struct {
	matched bool
	err     error
}

// Recommend returns the trending movies that share at least one genre with
// prefs, in trending order, each at most once. Per-movie failures never fail
// the call; a nil prefs does.
func (e *RecommendationEngine) Recommend(ctx context.Context, prefs models.PreferenceSet) (*Recommendation, error) {
	if prefs == nil {
		return nil, ErrNilPreferences
	}

	rec := &Recommendation{Movies: []models.Movie{}}
	if len(prefs) == 0 {
		return rec, nil
	}

	trending, err := e.source.TrendingMovies(ctx)
	if err != nil {
		e.logger.Warn("recommendations: trending fetch failed", "error", err)
		rec.TrendingErr = err
		return rec, nil
	}

	candidates := uniqueByID(trending.Movies)

	mapper := iter.Mapper[models.Movie, genreOutcome]{MaxGoroutines: e.maxConcurrency}
	outcomes := mapper.Map(candidates, func(m *models.Movie) genreOutcome {
		return e.matchMovie(ctx, *m, prefs)
	})

	for i, out := range outcomes {
		switch {
		case out.err != nil:
			rec.Skipped = append(rec.Skipped, SkippedMovie{Movie: candidates[i], Err: out.err})
			metrics.RecommendationSkipped.Inc()
			e.logger.Debug("recommendations: skipped movie",
				"movie_id", candidates[i].ID, "title", candidates[i].Title, "error", out.err)
		case out.matched:
			rec.Movies = append(rec.Movies, candidates[i])
		}
	}

	e.logger.Info("recommendations computed",
		"preferences", len(prefs), "trending", len(candidates),
		"matched", len(rec.Movies), "skipped", len(rec.Skipped))
	return rec, nil
}

func (e *RecommendationEngine) matchMovie(ctx context.Context, m models.Movie, prefs models.PreferenceSet) genreOutcome {
	data, err := e.source.MovieDetailRaw(ctx, m.ID)
	if err != nil {
		return genreOutcome{err: err}
	}
	genres, err := ExtractGenres(data)
	if err != nil {
		return genreOutcome{err: err}
	}
	for _, g := range genres {
		if prefs.Matches(g) {
			return genreOutcome{matched: true}
		}
	}
	return genreOutcome{}
}

// uniqueByID keeps the first occurrence of each movie ID.
func uniqueByID(movies []models.Movie) []models.Movie {
	seen := make(map[int]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
