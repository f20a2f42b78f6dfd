package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"overbridge/pkg/models"
)

// Storage keys. One row per setting keeps the table readable with the
// sqlite CLI and lets partial saves overwrite only what changed.
const (
	keyOverseerrURL       = "overseerr_url"
	keyOverseerrAPIKey    = "overseerr_api_key"
	keyAuthMethod         = "auth_method"
	keyPrefer4K           = "prefer_4k"
	keyShowWeakDetections = "show_weak_detections"
	keyMaxDetections      = "max_detections"
	keyDescriptionLength  = "description_length"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Load reads the stored configuration, layered over the defaults so missing
// or garbage rows never surface to callers.
func (r *Repo) Load(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()

	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return s, fmt.Errorf("scan setting: %w", err)
		}

		switch key {
		case keyOverseerrURL:
			s.OverseerrURL = value
		case keyOverseerrAPIKey:
			s.OverseerrAPIKey = value
		case keyAuthMethod:
			s.AuthMethod = value
		case keyPrefer4K:
			s.Prefer4K = value == "true"
		case keyShowWeakDetections:
			s.ShowWeakDetections = value == "true"
		case keyMaxDetections:
			s.MaxDetections = models.SanitizeDetectionLimit(value, models.DetectionLimitDefault)
		case keyDescriptionLength:
			s.DescriptionLength = models.SanitizeDescriptionLength(value, models.DescriptionLengthDefault)
		}
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("rows err: %w", err)
	}

	return s.Sanitize(), nil
}

// Save sanitizes and upserts the full configuration in one transaction.
func (r *Repo) Save(ctx context.Context, s models.Settings) (models.Settings, error) {
	s = s.Sanitize()

	pairs := map[string]string{
		keyOverseerrURL:       s.OverseerrURL,
		keyOverseerrAPIKey:    s.OverseerrAPIKey,
		keyAuthMethod:         s.AuthMethod,
		keyPrefer4K:           strconv.FormatBool(s.Prefer4K),
		keyShowWeakDetections: strconv.FormatBool(s.ShowWeakDetections),
		keyMaxDetections:      strconv.Itoa(s.MaxDetections),
		keyDescriptionLength:  strconv.Itoa(s.DescriptionLength),
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, fmt.Errorf("begin save settings: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for key, value := range pairs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, key, value); err != nil {
			return s, fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return s, fmt.Errorf("commit save settings: %w", err)
	}
	return s, nil
}
