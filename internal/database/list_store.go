package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flickfinder/flickfinder/internal/models"
)

const (
	FavoritesTable = "user_favorites"
	WatchlistTable = "user_watchlist"
)

// ErrNilList is returned when Save is called without a list.
var ErrNilList = errors.New("movie list is nil")

// ListStore persists one per-user movie list. Save replaces the whole list.
type ListStore struct {
	db    *DB
	table string
}

// NewFavoritesStore creates the favorites store and its table.
func NewFavoritesStore(db *DB) (*ListStore, error) {
	return newListStore(db, FavoritesTable)
}

// NewWatchlistStore creates the watchlist store and its table.
func NewWatchlistStore(db *DB) (*ListStore, error) {
	return newListStore(db, WatchlistTable)
}

func newListStore(db *DB, table string) (*ListStore, error) {
	store := &ListStore{db: db, table: table}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ListStore) initTables() error {
	idColumn := "id SERIAL PRIMARY KEY"
	if s.db.Driver == DriverSQLite {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s,
			user_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			movie_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			poster_path TEXT,
			release_date TEXT,
			overview TEXT,
			popularity DOUBLE PRECISION,
			rating DOUBLE PRECISION,
			category TEXT
		)`, s.table, idColumn),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s(user_id, position)`, s.table, s.table),
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.table, err)
		}
	}
	return nil
}

// Save replaces the user's list with movies in a single transaction.
func (s *ListStore) Save(ctx context.Context, userID int, movies []models.Movie) error {
	if movies == nil {
		return ErrNilList
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", s.table), userID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_id, position, movie_id, title, poster_path, release_date, overview, popularity, rating, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range movies {
		if _, err := stmt.ExecContext(ctx,
			userID, i, m.ID, m.Title, m.PosterPath, m.ReleaseDate,
			m.Overview, m.Popularity, m.Rating, m.Category,
		); err != nil {
			return fmt.Errorf("failed to insert movie %d into %s: %w", m.ID, s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", s.table, err)
	}
	return nil
}

// Load returns the user's list in the order it was saved. Genres are not stored.
func (s *ListStore) Load(ctx context.Context, userID int) ([]models.Movie, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT movie_id, title, poster_path, release_date, overview, popularity, rating, category
		FROM %s WHERE user_id = $1 ORDER BY position, id`, s.table), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	movies := []models.Movie{}
	for rows.Next() {
		var (
			m                                      models.Movie
			posterPath, releaseDate, overview, cat sql.NullString
			popularity, rating                     sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.Title, &posterPath, &releaseDate, &overview, &popularity, &rating, &cat); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", s.table, err)
		}
		m.PosterPath = nullStringOr(posterPath, models.NoPoster)
		m.ReleaseDate = nullStringOr(releaseDate, models.UnknownRelease)
		m.Overview = nullStringOr(overview, models.NoOverview)
		m.Popularity = popularity.Float64
		m.Rating = rating.Float64
		m.Category = cat.String
		m.Genres = []string{}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.table, err)
	}
	return movies, nil
}

func nullStringOr(v sql.NullString, fallback string) string {
	if !v.Valid {
		return fallback
	}
	return v.String
}
