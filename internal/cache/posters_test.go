package cache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flickfinder/flickfinder/internal/models"
)

func testPoster(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 92, 138))
	for y := 0; y < 138; y++ {
		for x := 0; x < 92; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test poster: %v", err)
	}
	return buf.Bytes()
}

// newImageServer serves the test poster under /w92/ok*.png and 404s everything else.
func newImageServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	poster := testPoster(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/w92/ok") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(poster)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchAndStoreScalesThumbnail(t *testing.T) {
	srv, _ := newImageServer(t)
	c := NewPosterCache(nil, WithImageBaseURL(srv.URL))

	if err := c.FetchAndStore(context.Background(), 1, "/ok1.png"); err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	img, ok := c.Get(1)
	if !ok {
		t.Fatal("thumbnail not cached")
	}
	if b := img.Bounds(); b.Dx() != ThumbWidth || b.Dy() != ThumbHeight {
		t.Errorf("thumbnail is %dx%d, want %dx%d", b.Dx(), b.Dy(), ThumbWidth, ThumbHeight)
	}
}

func TestFetchAndStoreFailureLeavesKeyAbsent(t *testing.T) {
	srv, _ := newImageServer(t)
	c := NewPosterCache(nil, WithImageBaseURL(srv.URL))
	ctx := context.Background()

	if err := c.FetchAndStore(ctx, 2, "/missing.jpg"); err == nil {
		t.Error("expected an error for a 404 poster")
	}
	if err := c.FetchAndStore(ctx, 3, models.NoPoster); err == nil {
		t.Error("expected an error for N/A")
	}
	if _, ok := c.Get(2); ok {
		t.Error("failed fetch must not populate the cache")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestConcurrentDistinctFetches(t *testing.T) {
	srv, _ := newImageServer(t)
	c := NewPosterCache(nil, WithImageBaseURL(srv.URL))

	const n = 25
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := c.FetchAndStore(context.Background(), id, fmt.Sprintf("/ok%d.png", id)); err != nil {
				t.Errorf("FetchAndStore(%d): %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != n {
		t.Fatalf("Len = %d, want %d", c.Len(), n)
	}
	for i := 1; i <= n; i++ {
		if _, ok := c.Get(i); !ok {
			t.Errorf("movie %d missing from cache", i)
		}
	}
}

func TestFetchAllSkipsNoPosterAndCached(t *testing.T) {
	srv, hits := newImageServer(t)
	c := NewPosterCache(nil, WithImageBaseURL(srv.URL), WithWorkers(2))
	ctx := context.Background()

	if err := c.FetchAndStore(ctx, 1, "/ok1.png"); err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	hits.Store(0)

	movies := []models.Movie{
		{ID: 1, PosterPath: "/ok1.png"},
		{ID: 2, PosterPath: models.NoPoster},
		{ID: 3, PosterPath: "/ok3.png"},
		{ID: 3, PosterPath: "/ok3.png"},
		{ID: 4, PosterPath: ""},
		{ID: 5, PosterPath: "/ok5.png"},
	}
	c.FetchAll(ctx, movies)

	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 downloads, got %d", got)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(2); ok {
		t.Error("N/A poster must not be cached")
	}
}

func TestPrefetchRunsInBackground(t *testing.T) {
	srv, _ := newImageServer(t)
	c := NewPosterCache(nil, WithImageBaseURL(srv.URL), WithFetchTimeout(5*time.Second))

	c.Prefetch([]models.Movie{{ID: 10, PosterPath: "/ok10.png"}, {ID: 11, PosterPath: "/ok11.png"}})

	deadline := time.Now().Add(5 * time.Second)
	for c.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("prefetch did not finish, Len = %d", c.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder()
	if b := img.Bounds(); b.Dx() != ThumbWidth || b.Dy() != ThumbHeight {
		t.Fatalf("placeholder is %dx%d", b.Dx(), b.Dy())
	}
	if got := color.RGBAModel.Convert(img.At(0, 0)); got != placeholderBorder {
		t.Errorf("corner = %v, want border %v", got, placeholderBorder)
	}
	if got := color.RGBAModel.Convert(img.At(ThumbWidth/2, ThumbHeight/2)); got != placeholderFill {
		t.Errorf("center = %v, want fill %v", got, placeholderFill)
	}
}

func TestEncodePNGFallsBackToPlaceholder(t *testing.T) {
	c := NewPosterCache(nil)

	var buf bytes.Buffer
	if err := c.EncodePNG(&buf, 42); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != ThumbWidth || b.Dy() != ThumbHeight {
		t.Errorf("encoded image is %dx%d", b.Dx(), b.Dy())
	}
}

func TestLRUStoreBound(t *testing.T) {
	store, err := NewLRUStore(2)
	if err != nil {
		t.Fatalf("NewLRUStore: %v", err)
	}
	img := Placeholder()
	store.Add(1, img)
	store.Add(2, img)
	store.Get(1)
	store.Add(3, img)

	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if _, ok := store.Get(2); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := store.Get(1); !ok {
		t.Error("recently used entry should survive")
	}

	if _, err := NewLRUStore(0); err == nil {
		t.Error("expected an error for zero capacity")
	}
}

func TestNewStoreSelection(t *testing.T) {
	s, err := NewStore(0)
	if err != nil {
		t.Fatalf("NewStore(0): %v", err)
	}
	if _, ok := s.(*MapStore); !ok {
		t.Errorf("NewStore(0) = %T, want *MapStore", s)
	}
	s, err = NewStore(10)
	if err != nil {
		t.Fatalf("NewStore(10): %v", err)
	}
	if _, ok := s.(*LRUStore); !ok {
		t.Errorf("NewStore(10) = %T, want *LRUStore", s)
	}
}
