package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/flickfinder/flickfinder/internal/models"
)

// Wire shapes. Pointer fields distinguish "absent or null" from zero values.
type tmdbListItem struct {
	ID          *int     `json:"id"`
	Title       *string  `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	Overview    *string  `json:"overview"`
	ReleaseDate *string  `json:"release_date"`
	Popularity  *float64 `json:"popularity"`
	VoteAverage *float64 `json:"vote_average"`
}

type tmdbListResponse struct {
	Results *[]json.RawMessage `json:"results"`
}

type tmdbDetail struct {
	Title       *string  `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	Overview    *string  `json:"overview"`
	ReleaseDate *string  `json:"release_date"`
	VoteAverage *float64 `json:"vote_average"`
}

type tmdbGenreName struct {
	Name *string `json:"name"`
}

type tmdbGenre struct {
	ID   *int    `json:"id"`
	Name *string `json:"name"`
}

// ListResult is a normalized list page. Skipped holds the entries that were
// dropped because a required field was missing or mistyped.
type ListResult struct {
	Movies  []models.Movie
	Skipped []ItemError
}

// DetailSummary is the display form of a movie detail payload
type DetailSummary struct {
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Rating      float64 `json:"rating"`
	Overview    string  `json:"overview"`
}

// String renders the summary as the human-readable detail block.
func (d DetailSummary) String() string {
	return fmt.Sprintf("Title: %s\nRelease Date: %s\nRating: %s\n\n%s",
		d.Title, d.ReleaseDate, formatRating(d.Rating), d.Overview)
}

// NormalizeList converts a list payload (search, trending, discover) into
// movies tagged with category. Malformed items are skipped, not fatal.
func NormalizeList(data []byte, category string) (ListResult, error) {
	var resp tmdbListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ListResult{}, parseErrorf("failed to unmarshal list: %v", err)
	}
	if resp.Results == nil {
		return ListResult{}, parseErrorf("list payload has no results array")
	}

	result := ListResult{Movies: make([]models.Movie, 0, len(*resp.Results))}
	for i, raw := range *resp.Results {
		movie, err := normalizeListItem(raw, category)
		if err != nil {
			result.Skipped = append(result.Skipped, ItemError{Index: i, Err: err})
			continue
		}
		result.Movies = append(result.Movies, movie)
	}
	return result, nil
}

func normalizeListItem(raw json.RawMessage, category string) (models.Movie, error) {
	var item tmdbListItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.Movie{}, parseErrorf("failed to unmarshal item: %v", err)
	}
	if item.ID == nil {
		return models.Movie{}, parseErrorf("item has no id")
	}
	if item.Title == nil {
		return models.Movie{}, parseErrorf("item %d has no title", *item.ID)
	}

	return models.Movie{
		ID:          *item.ID,
		Title:       *item.Title,
		PosterPath:  stringOr(item.PosterPath, models.NoPoster),
		ReleaseDate: stringOr(item.ReleaseDate, models.UnknownRelease),
		Overview:    stringOr(item.Overview, models.NoOverview),
		Popularity:  scoreOr(item.Popularity),
		Rating:      scoreOr(item.VoteAverage),
		Category:    category,
		Genres:      []string{},
	}, nil
}

// NormalizeDetail converts a detail payload into its display summary.
func NormalizeDetail(data []byte) (DetailSummary, error) {
	var d tmdbDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return DetailSummary{}, parseErrorf("failed to unmarshal movie: %v", err)
	}
	if d.Title == nil {
		return DetailSummary{}, parseErrorf("movie detail has no title")
	}
	return DetailSummary{
		Title:       *d.Title,
		PosterPath:  stringOr(d.PosterPath, models.NoPoster),
		ReleaseDate: stringOr(d.ReleaseDate, models.UnknownRelease),
		Rating:      scoreOr(d.VoteAverage),
		Overview:    stringOr(d.Overview, models.NoOverview),
	}, nil
}

// ExtractGenres pulls the genre names out of a raw detail payload. A payload
// without a genres array, or with an unnamed entry, is a parse failure.
func ExtractGenres(data []byte) ([]string, error) {
	var d struct {
		Genres *[]tmdbGenreName `json:"genres"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, parseErrorf("failed to unmarshal genres: %v", err)
	}
	if d.Genres == nil {
		return nil, parseErrorf("detail payload has no genres array")
	}

	names := make([]string, 0, len(*d.Genres))
	for i, g := range *d.Genres {
		if g.Name == nil {
			return nil, parseErrorf("genre %d has no name", i)
		}
		names = append(names, *g.Name)
	}
	return names, nil
}

// NormalizeGenres converts the genre list payload into a GenreMap.
func NormalizeGenres(data []byte) (models.GenreMap, error) {
	var resp struct {
		Genres *[]tmdbGenre `json:"genres"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, parseErrorf("failed to unmarshal genre list: %v", err)
	}
	if resp.Genres == nil {
		return nil, parseErrorf("genre payload has no genres array")
	}

	genres := make(models.GenreMap, 0, len(*resp.Genres))
	for i, g := range *resp.Genres {
		if g.ID == nil || g.Name == nil {
			return nil, parseErrorf("genre %d is missing id or name", i)
		}
		genres = append(genres, models.Genre{ID: *g.ID, Name: *g.Name})
	}
	return genres, nil
}

func stringOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

// scoreOr defaults absent scores to 0 and clamps negatives.
func scoreOr(v *float64) float64 {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// formatRating prints a score with at least one decimal place (7 -> "7.0").
func formatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
