package models

import "strings"

// Default values substituted for fields the catalog leaves out
const (
	NoPoster        = "N/A"
	UnknownRelease  = "Unknown"
	NoOverview      = "No description available."
	GenresFailedMsg = "Failed to fetch genres."
)

// Category tags describe where a movie value came from. They are advisory only.
const (
	CategorySearch = "Search Result"
	CategoryTrend  = "Trending"
	CategoryGenre  = "Genre Browse"
)

// Movie is a catalog item. Two movies are the same item iff their IDs match;
// every other field is display data and may differ between fetches.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	PosterPath  string   `json:"poster_path"`
	ReleaseDate string   `json:"release_date"`
	Overview    string   `json:"overview"`
	Popularity  float64  `json:"popularity"`
	Rating      float64  `json:"rating"`
	Category    string   `json:"category"`
	Genres      []string `json:"genres"`
}

// Same reports whether m and other refer to the same catalog item.
func (m Movie) Same(other Movie) bool {
	return m.ID == other.ID
}

// HasPoster reports whether the movie carries usable artwork.
func (m Movie) HasPoster() bool {
	return m.PosterPath != "" && m.PosterPath != NoPoster
}

// ContainsMovie reports whether list holds an item with the same ID as m.
func ContainsMovie(list []Movie, m Movie) bool {
	return IndexOfMovie(list, m.ID) >= 0
}

// IndexOfMovie returns the position of the movie with the given ID, or -1.
func IndexOfMovie(list []Movie, id int) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveMovie returns list without the movie with the given ID and whether
// anything was removed. The input slice is not modified.
func RemoveMovie(list []Movie, id int) ([]Movie, bool) {
	idx := IndexOfMovie(list, id)
	if idx < 0 {
		return list, false
	}
	out := make([]Movie, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, true
}

// Genre is one entry of the catalog's genre list
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreMap holds genres in the order the catalog returned them
type GenreMap []Genre

// FailedGenreMap is the sentinel returned when the genre list could not be fetched.
func FailedGenreMap() GenreMap {
	return GenreMap{{ID: -1, Name: GenresFailedMsg}}
}

// Failed reports whether g is the fetch-failure sentinel.
func (g GenreMap) Failed() bool {
	for _, genre := range g {
		if genre.ID == -1 {
			return true
		}
	}
	return false
}

// Lookup returns the name for a genre ID.
func (g GenreMap) Lookup(id int) (string, bool) {
	for _, genre := range g {
		if genre.ID == id {
			return genre.Name, true
		}
	}
	return "", false
}

// IDByName returns the ID of the first genre whose name matches exactly.
func (g GenreMap) IDByName(name string) (int, bool) {
	for _, genre := range g {
		if genre.Name == name {
			return genre.ID, true
		}
	}
	return -1, false
}

// PreferenceSet is a set of genre names used as recommendation input.
// A nil set means the caller supplied nothing and is rejected; an empty set
// is valid and matches nothing.
type PreferenceSet map[string]struct{}

// NewPreferenceSet builds a set from names, ignoring blanks.
func NewPreferenceSet(names ...string) PreferenceSet {
	set := make(PreferenceSet, len(names))
	for _, name := range names {
		set.Add(name)
	}
	return set
}

// Add inserts a genre name. Blank names are ignored.
func (p PreferenceSet) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	p[name] = struct{}{}
}

// Matches reports whether genre case-insensitively equals any preference.
func (p PreferenceSet) Matches(genre string) bool {
	for name := range p {
		if strings.EqualFold(name, genre) {
			return true
		}
	}
	return false
}

// Names returns the preferences as a slice in no particular order.
func (p PreferenceSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	return names
}
