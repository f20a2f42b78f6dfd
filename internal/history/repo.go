package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one submitted media request, recorded locally so the popup can
// show what was already asked for without querying the server.
type Entry struct {
	ID          string    `json:"id"`
	TmdbID      int       `json:"tmdbId"`
	MediaType   string    `json:"mediaType"`
	Title       string    `json:"title"`
	ReleaseYear string    `json:"releaseYear,omitempty"`
	Poster      string    `json:"poster,omitempty"`
	Is4K        bool      `json:"is4k"`
	ServerURL   string    `json:"serverUrl"`
	RequestedAt time.Time `json:"requestedAt"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Record appends one entry and returns its id.
func (r *Repo) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO request_history (id, tmdb_id, media_type, title, release_year, poster, is_4k, server_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TmdbID, e.MediaType, e.Title, e.ReleaseYear, e.Poster, e.Is4K, e.ServerURL)

	if err != nil {
		return "", fmt.Errorf("record request: %w", err)
	}
	return e.ID, nil
}

// List returns entries newest-first.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM request_history
	`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, tmdb_id, media_type, title, release_year, poster, is_4k, server_url, requested_at
		FROM request_history
		ORDER BY requested_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TmdbID, &e.MediaType, &e.Title, &e.ReleaseYear, &e.Poster, &e.Is4K, &e.ServerURL, &e.RequestedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}

// LastForTitle returns the newest entry matching a TMDB id, or nil.
func (r *Repo) LastForTitle(ctx context.Context, tmdbID int) (*Entry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, tmdb_id, media_type, title, release_year, poster, is_4k, server_url, requested_at
		FROM request_history
		WHERE tmdb_id = ?
		ORDER BY requested_at DESC, rowid DESC
		LIMIT 1
	`, tmdbID)

	var e Entry
	if err := row.Scan(&e.ID, &e.TmdbID, &e.MediaType, &e.Title, &e.ReleaseYear, &e.Poster, &e.Is4K, &e.ServerURL, &e.RequestedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get last request: %w", err)
	}
	return &e, nil
}
