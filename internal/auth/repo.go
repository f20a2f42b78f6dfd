package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Pairing is the single local pairing record: the bcrypt hash of the pairing
// code the extension must present, and a token version bumped on every
// unpair so issued tokens can be revoked at once.
type Pairing struct {
	PassphraseHash string
	TokenVersion   int
	CreatedAt      time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// GetPairing returns the stored pairing record, or nil when pairing has
// never been configured.
func (r *Repo) GetPairing(ctx context.Context) (*Pairing, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT passphrase_hash, token_version, created_at
		FROM pairing
		WHERE id = 1
	`)

	var p Pairing
	if err := row.Scan(&p.PassphraseHash, &p.TokenVersion, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get pairing: %w", err)
	}
	return &p, nil
}

// SetPassphraseHash stores (or replaces) the pairing code hash. Replacing it
// bumps the token version so tokens issued under the old code stop working.
func (r *Repo) SetPassphraseHash(ctx context.Context, hash string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO pairing (id, passphrase_hash, token_version)
		VALUES (1, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			passphrase_hash = excluded.passphrase_hash,
			token_version = pairing.token_version + 1
	`, hash)

	if err != nil {
		return fmt.Errorf("set pairing passphrase: %w", err)
	}
	return nil
}

func (r *Repo) GetTokenVersion(ctx context.Context) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM pairing
		WHERE id = 1
	`)

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE pairing
		SET token_version = token_version + 1
		WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: pairing not configured")
	}
	return nil
}
