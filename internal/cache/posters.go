package cache

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/image/draw"

	"github.com/flickfinder/flickfinder/internal/metrics"
	"github.com/flickfinder/flickfinder/internal/models"
)

const (
	ThumbWidth  = 62
	ThumbHeight = 92

	thumbSize           = "w92"
	defaultImageBaseURL = "https://image.tmdb.org/t/p"
	defaultWorkers      = 4
	defaultFetchTimeout = 20 * time.Second
)

var (
	placeholderFill   = color.RGBA{R: 0xd3, G: 0xd3, B: 0xd3, A: 0xff}
	placeholderBorder = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

var placeholder = sync.OnceValue(func() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, ThumbWidth, ThumbHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderFill}, image.Point{}, draw.Src)
	for x := 0; x < ThumbWidth; x++ {
		img.SetRGBA(x, 0, placeholderBorder)
		img.SetRGBA(x, ThumbHeight-1, placeholderBorder)
	}
	for y := 0; y < ThumbHeight; y++ {
		img.SetRGBA(0, y, placeholderBorder)
		img.SetRGBA(ThumbWidth-1, y, placeholderBorder)
	}
	return img
})

// Placeholder is the thumbnail shown while a poster is missing. The returned
// image is shared and must not be modified.
func Placeholder() image.Image {
	return placeholder()
}

// PosterCache fetches poster thumbnails in the background and serves them
// from a PosterStore. A missing entry means "show the placeholder".
type PosterCache struct {
	store        PosterStore
	imageBaseURL string
	httpClient   *http.Client
	workers      int
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// Option customises a PosterCache.
type Option func(*PosterCache)

func WithImageBaseURL(base string) Option {
	return func(c *PosterCache) {
		if base != "" {
			c.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *PosterCache) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithWorkers bounds the number of concurrent poster downloads.
func WithWorkers(n int) Option {
	return func(c *PosterCache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithFetchTimeout bounds a background Prefetch batch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *PosterCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *PosterCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewPosterCache creates a cache backed by store, or by a MapStore when store is nil.
func NewPosterCache(store PosterStore, opts ...Option) *PosterCache {
	if store == nil {
		store = NewMapStore()
	}
	c := &PosterCache{
		store:        store,
		imageBaseURL: defaultImageBaseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		workers:      defaultWorkers,
		fetchTimeout: defaultFetchTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached thumbnail for movieID.
func (c *PosterCache) Get(movieID int) (image.Image, bool) {
	return c.store.Get(movieID)
}

// Len returns the number of cached thumbnails.
func (c *PosterCache) Len() int {
	return c.store.Len()
}

// FetchAndStore downloads, decodes and scales one poster, then caches it.
// On error nothing is stored.
func (c *PosterCache) FetchAndStore(ctx context.Context, movieID int, posterPath string) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.PosterFetches.WithLabelValues(outcome).Inc()
	}()

	if posterPath == "" || posterPath == models.NoPoster {
		return fmt.Errorf("movie %d has no poster", movieID)
	}

	url := c.imageBaseURL + "/" + thumbSize + posterPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create poster request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch poster %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("poster %s returned status %d", url, resp.StatusCode)
	}

	src, _, err := image.Decode(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode poster %s: %w", url, err)
	}

	c.store.Add(movieID, scaleThumb(src))
	metrics.PosterCacheEntries.Set(float64(c.store.Len()))
	return nil
}

// FetchAll downloads the posters for movies on a bounded worker pool and
// waits for them. Movies without artwork and movies already cached are skipped.
func (c *PosterCache) FetchAll(ctx context.Context, movies []models.Movie) {
	p := pool.New().WithMaxGoroutines(c.workers)
	queued := make(map[int]struct{}, len(movies))

	for _, m := range movies {
		if !m.HasPoster() {
			continue
		}
		if _, ok := queued[m.ID]; ok {
			continue
		}
		if _, ok := c.store.Get(m.ID); ok {
			continue
		}
		queued[m.ID] = struct{}{}

		p.Go(func() {
			if err := c.FetchAndStore(ctx, m.ID, m.PosterPath); err != nil {
				c.logger.Warn("posters: fetch failed", "movie_id", m.ID, "error", err)
			}
		})
	}

	p.Wait()
	c.logger.Debug("posters: batch complete", "requested", len(queued), "cached", c.store.Len())
}

// Prefetch runs FetchAll in the background with its own timeout so that the
// batch outlives the request that triggered it.
func (c *PosterCache) Prefetch(movies []models.Movie) {
	batch := append([]models.Movie(nil), movies...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer cancel()
		c.FetchAll(ctx, batch)
	}()
}

// EncodePNG writes the thumbnail for movieID, or the placeholder, as PNG.
func (c *PosterCache) EncodePNG(w io.Writer, movieID int) error {
	img, ok := c.store.Get(movieID)
	if !ok {
		img = Placeholder()
	}
	return png.Encode(w, img)
}

func scaleThumb(src image.Image) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, ThumbWidth, ThumbHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
