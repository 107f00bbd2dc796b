package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flickfinder/flickfinder/internal/models"
)

type recordedRequest struct {
	Path   string
	Query  map[string]string
	Auth   string
	Accept string
}

// newCatalogServer starts a stub catalog that answers from routes keyed by path.
// Unknown paths get a 404 with a TMDB-style error body.
func newCatalogServer(t *testing.T, routes map[string]string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := make(map[string]string)
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			Path:   r.URL.Path,
			Query:  q,
			Auth:   r.Header.Get("Authorization"),
			Accept: r.Header.Get("Accept"),
		})
		mu.Unlock()

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestCatalog(t *testing.T, routes map[string]string) (*CatalogService, *TMDBClient, func() []recordedRequest) {
	t.Helper()
	srv, requests := newCatalogServer(t, routes)
	client := NewTMDBClient("test-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	return NewCatalogService(client, nil, nil), client, requests
}

func TestSearchInceptionScenario(t *testing.T) {
	svc, _, requests := newTestCatalog(t, map[string]string{
		"/search/movie": `{"page":1,"results":[{"id":27205,"title":"Inception"}]}`,
	})

	movies := svc.Search(context.Background(), "inception")
	if len(movies) != 1 {
		t.Fatalf("expected 1 movie, got %d", len(movies))
	}
	m := movies[0]
	if m.ID != 27205 || m.Title != "Inception" || m.PosterPath != "N/A" ||
		m.ReleaseDate != "Unknown" || m.Overview != "No description available." ||
		m.Rating != 0 || m.Popularity != 0 || m.Category != "Search Result" {
		t.Errorf("unexpected movie: %+v", m)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	r := reqs[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", r.Auth)
	}
	if r.Accept != "application/json" {
		t.Errorf("Accept = %q", r.Accept)
	}
	wantQuery := map[string]string{"query": "inception", "include_adult": "false", "language": "en-US", "page": "1"}
	for k, v := range wantQuery {
		if r.Query[k] != v {
			t.Errorf("query %s = %q, want %q", k, r.Query[k], v)
		}
	}
}

func TestSearchBlankQuerySkipsNetwork(t *testing.T) {
	svc, _, requests := newTestCatalog(t, nil)

	if movies := svc.Search(context.Background(), "   "); len(movies) != 0 {
		t.Errorf("expected no movies, got %d", len(movies))
	}
	if n := len(requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestFacadeListFailuresAreEmpty(t *testing.T) {
	svc, _, _ := newTestCatalog(t, map[string]string{
		"/trending/movie/day": `{"page":1}`,
	})
	ctx := context.Background()

	trending := svc.Trending(ctx)
	if trending == nil || len(trending) != 0 {
		t.Errorf("Trending with no results array = %v", trending)
	}
	byGenre := svc.ByGenre(ctx, 28)
	if byGenre == nil || len(byGenre) != 0 {
		t.Errorf("ByGenre on 404 = %v", byGenre)
	}
	search := svc.Search(ctx, "anything")
	if search == nil || len(search) != 0 {
		t.Errorf("Search on 404 = %v", search)
	}
}

func TestDiscoverByGenreQuery(t *testing.T) {
	svc, _, requests := newTestCatalog(t, map[string]string{
		"/discover/movie": `{"results":[{"id":1,"title":"A"},{"id":2,"title":"B"}]}`,
	})

	movies := svc.ByGenre(context.Background(), 28)
	if len(movies) != 2 || movies[0].Category != models.CategoryGenre {
		t.Fatalf("unexpected movies: %+v", movies)
	}
	q := requests()[0].Query
	if q["with_genres"] != "28" || q["sort_by"] != "popularity.desc" || q["language"] != "en-US" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestDetailsRawNotFound(t *testing.T) {
	svc, client, _ := newTestCatalog(t, nil)

	if got := svc.DetailsRaw(context.Background(), -1); got != "{}" {
		t.Errorf("DetailsRaw(-1) = %q, want {}", got)
	}

	_, err := client.MovieDetailRaw(context.Background(), -1)
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNotFound and ErrNetwork, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("expected a 404 StatusError, got %v", err)
	}
}

func TestDetailsRawPassThrough(t *testing.T) {
	raw := `{"id":27205,"title":"Inception","genres":[{"id":28,"name":"Action"}]}`
	svc, _, _ := newTestCatalog(t, map[string]string{"/movie/27205": raw})

	if got := svc.DetailsRaw(context.Background(), 27205); got != raw {
		t.Errorf("DetailsRaw = %q, want %q", got, raw)
	}
}

func TestDetailsSummary(t *testing.T) {
	svc, _, _ := newTestCatalog(t, map[string]string{
		"/movie/27205": `{"title":"Inception","release_date":"2010-07-16","vote_average":8.4,"overview":"Dreams."}`,
		"/movie/99":    `{"overview":"missing title"}`,
	})
	ctx := context.Background()

	want := "Title: Inception\nRelease Date: 2010-07-16\nRating: 8.4\n\nDreams."
	if got := svc.DetailsSummary(ctx, 27205); got != want {
		t.Errorf("DetailsSummary = %q, want %q", got, want)
	}
	if got := svc.DetailsSummary(ctx, 99); got != DetailsErrorText {
		t.Errorf("DetailsSummary on parse failure = %q", got)
	}
	if got := svc.DetailsSummary(ctx, 404); got != DetailsErrorText {
		t.Errorf("DetailsSummary on 404 = %q", got)
	}
}

func TestGenresAndSentinel(t *testing.T) {
	svc, _, requests := newTestCatalog(t, map[string]string{
		"/genre/movie/list": `{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`,
	})
	ctx := context.Background()

	genres := svc.Genres(ctx)
	if genres.Failed() || len(genres) != 2 {
		t.Fatalf("unexpected genres: %+v", genres)
	}
	if requests()[0].Query["language"] != "en" {
		t.Errorf("genre list language = %q", requests()[0].Query["language"])
	}
	if id, ok := svc.GenreIDByName(ctx, "Drama"); !ok || id != 18 {
		t.Errorf("GenreIDByName(Drama) = %d, %v", id, ok)
	}
	if _, ok := svc.GenreIDByName(ctx, "Western"); ok {
		t.Error("GenreIDByName(Western) should not resolve")
	}

	failing, _, _ := newTestCatalog(t, nil)
	sentinel := failing.Genres(ctx)
	if len(sentinel) != 1 || sentinel[0].ID != -1 || sentinel[0].Name != "Failed to fetch genres." {
		t.Errorf("unexpected sentinel: %+v", sentinel)
	}
	if _, ok := failing.GenreIDByName(ctx, "Failed to fetch genres."); ok {
		t.Error("sentinel name must not resolve to a genre")
	}
}

func TestNonJSONBodyIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	client := NewTMDBClient("t", WithBaseURL(srv.URL))
	_, err := client.TrendingRaw(context.Background())
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestServerErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewTMDBClient("t", WithBaseURL(srv.URL))
	_, err := client.GenresRaw(context.Background())
	if !errors.Is(err, ErrNetwork) || errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNetwork without ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention the status: %v", err)
	}
}

func TestRecommendThroughFacade(t *testing.T) {
	svc, _, _ := newTestCatalog(t, map[string]string{
		"/trending/movie/day": `{"results":[{"id":1,"title":"A"},{"id":2,"title":"B"}]}`,
		"/movie/1":            `{"id":1,"genres":[{"id":28,"name":"Action"}]}`,
		"/movie/2":            `{"id":2,"genres":[{"id":35,"name":"Comedy"}]}`,
	})
	ctx := context.Background()

	movies, err := svc.Recommend(ctx, models.NewPreferenceSet("ACTION"))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(movies) != 1 || movies[0].ID != 1 {
		t.Errorf("unexpected recommendations: %+v", movies)
	}

	if _, err := svc.Recommend(ctx, nil); !errors.Is(err, ErrNilPreferences) {
		t.Errorf("expected ErrNilPreferences, got %v", err)
	}
}

func TestPreferredGenres(t *testing.T) {
	svc, _, requests := newTestCatalog(t, map[string]string{
		"/movie/1": `{"id":1,"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`,
		"/movie/2": `{"id":2,"genres":[{"id":35,"name":"Comedy"}]}`,
	})

	favorites := []models.Movie{{ID: 1, Title: "A"}, {ID: 3, Title: "Gone"}}
	watchlist := []models.Movie{{ID: 2, Title: "B"}, {ID: 1, Title: "A"}}

	prefs := svc.PreferredGenres(context.Background(), favorites, watchlist)
	if prefs == nil {
		t.Fatal("PreferredGenres returned nil")
	}
	for _, g := range []string{"Action", "Drama", "Comedy"} {
		if !prefs.Matches(g) {
			t.Errorf("expected %s in preferences", g)
		}
	}
	if len(prefs) != 3 {
		t.Errorf("expected 3 preferences, got %v", prefs.Names())
	}
	if n := len(requests()); n != 3 {
		t.Errorf("expected 3 detail requests, got %d", n)
	}
}

func TestPosterURL(t *testing.T) {
	client := NewTMDBClient("t", WithImageBaseURL("https://img.example/t/p/"))

	if got := client.PosterURL(PosterThumbSize, "/abc.jpg"); got != "https://img.example/t/p/w92/abc.jpg" {
		t.Errorf("PosterURL = %q", got)
	}
	if got := client.PosterURL(PosterDetailSize, models.NoPoster); got != "" {
		t.Errorf("PosterURL(N/A) = %q", got)
	}
}
