package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/flickfinder/flickfinder/internal/metrics"
	"github.com/flickfinder/flickfinder/internal/models"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"

	// PosterThumbSize is used for list thumbnails, PosterDetailSize for detail views.
	PosterThumbSize  = "w92"
	PosterDetailSize = "w200"
)

// TMDBClient talks to the TMDB v3 API with a bearer token. It keeps no state
// between calls and never retries.
type TMDBClient struct {
	token        string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
}

// ClientOption customises a TMDBClient.
type ClientOption func(*TMDBClient)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) ClientOption {
	return func(c *TMDBClient) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithImageBaseURL points poster URLs at a different image host.
func WithImageBaseURL(base string) ClientOption {
	return func(c *TMDBClient) {
		if base != "" {
			c.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *TMDBClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewTMDBClient(token string, opts ...ClientOption) *TMDBClient {
	c := &TMDBClient{
		token:        token,
		baseURL:      tmdbBaseURL,
		imageBaseURL: tmdbImageBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an authenticated GET against path (relative to the API root)
// and returns the raw JSON body.
func (c *TMDBClient) Get(ctx context.Context, path string, params url.Values) (data []byte, err error) {
	started := time.Now()
	defer func() { metrics.RecordCatalogRequest(endpointLabel(path), started, err) }()

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse TMDB endpoint %s: %v", ErrNetwork, path, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to make request to %s: %v", ErrNetwork, u.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u.Redacted(), Body: truncate(string(data), 200)}
	}

	if !json.Valid(data) {
		return nil, parseErrorf("response from %s is not JSON", u.Path)
	}

	return data, nil
}

// SearchMoviesRaw returns the first page of title matches for query.
func (c *TMDBClient) SearchMoviesRaw(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", "en-US")
	params.Set("page", "1")
	return c.Get(ctx, "/search/movie", params)
}

// TrendingRaw returns today's trending movies.
func (c *TMDBClient) TrendingRaw(ctx context.Context) ([]byte, error) {
	return c.Get(ctx, "/trending/movie/day", nil)
}

// MovieDetailRaw returns the unmodified detail payload for one movie.
func (c *TMDBClient) MovieDetailRaw(ctx context.Context, tmdbID int) ([]byte, error) {
	return c.Get(ctx, "/movie/"+strconv.Itoa(tmdbID), nil)
}

// GenresRaw returns the movie genre list.
func (c *TMDBClient) GenresRaw(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("language", "en")
	return c.Get(ctx, "/genre/movie/list", params)
}

// DiscoverByGenreRaw returns popular movies for a genre.
func (c *TMDBClient) DiscoverByGenreRaw(ctx context.Context, genreID int) ([]byte, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("language", "en-US")
	params.Set("sort_by", "popularity.desc")
	return c.Get(ctx, "/discover/movie", params)
}

// SearchMovies searches for movies by title
func (c *TMDBClient) SearchMovies(ctx context.Context, query string) (ListResult, error) {
	data, err := c.SearchMoviesRaw(ctx, query)
	if err != nil {
		return ListResult{}, err
	}
	return NormalizeList(data, models.CategorySearch)
}

// TrendingMovies returns today's trending movies
func (c *TMDBClient) TrendingMovies(ctx context.Context) (ListResult, error) {
	data, err := c.TrendingRaw(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return NormalizeList(data, models.CategoryTrend)
}

// DiscoverByGenre returns popular movies in a genre
func (c *TMDBClient) DiscoverByGenre(ctx context.Context, genreID int) (ListResult, error) {
	data, err := c.DiscoverByGenreRaw(ctx, genreID)
	if err != nil {
		return ListResult{}, err
	}
	return NormalizeList(data, models.CategoryGenre)
}

// MovieDetail retrieves the display summary for one movie
func (c *TMDBClient) MovieDetail(ctx context.Context, tmdbID int) (DetailSummary, error) {
	data, err := c.MovieDetailRaw(ctx, tmdbID)
	if err != nil {
		return DetailSummary{}, err
	}
	return NormalizeDetail(data)
}

// Genres retrieves the genre list
func (c *TMDBClient) Genres(ctx context.Context) (models.GenreMap, error) {
	data, err := c.GenresRaw(ctx)
	if err != nil {
		return nil, err
	}
	return NormalizeGenres(data)
}

// PosterURL returns the full image URL for a poster path, or "" when the
// movie has no artwork.
func (c *TMDBClient) PosterURL(size, path string) string {
	if path == "" || path == models.NoPoster {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.imageBaseURL, size, path)
}

// endpointLabel keeps metric cardinality bounded by using the first path segment.
func endpointLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
