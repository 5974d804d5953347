package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-sheetsync/adapters/googlesheets"
)

var _ googlesheets.CredentialStore = (*DB)(nil)

// SaveCredential stores a credential obtained from the OAuth consent flow.
// Older credentials are kept; Latest always returns the newest one.
func (db *DB) SaveCredential(ctx context.Context, cred *googlesheets.StoredCredential) error {
	if cred == nil {
		return fmt.Errorf("credential is required")
	}

	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var expiry string
	if !cred.Expiry.IsZero() {
		expiry = cred.Expiry.UTC().Format(time.RFC3339Nano)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sheetsync_credentials
			(token, refresh_token, token_uri, client_id, client_secret, scopes, expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cred.Token, cred.RefreshToken, cred.TokenURI, cred.ClientID, cred.ClientSecret,
		strings.Join(cred.Scopes, " "), expiry, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Latest implements googlesheets.CredentialStore
func (db *DB) Latest(ctx context.Context) (*googlesheets.StoredCredential, error) {
	var cred googlesheets.StoredCredential
	var scopes, expiry, createdAt string

	err := db.conn.QueryRowContext(ctx, `
		SELECT token, refresh_token, token_uri, client_id, client_secret, scopes, expiry, created_at
		FROM sheetsync_credentials
		ORDER BY id DESC
		LIMIT 1`).Scan(
		&cred.Token, &cred.RefreshToken, &cred.TokenURI, &cred.ClientID, &cred.ClientSecret,
		&scopes, &expiry, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, googlesheets.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	cred.Scopes = strings.Fields(scopes)
	if expiry != "" {
		if cred.Expiry, err = time.Parse(time.RFC3339Nano, expiry); err != nil {
			return nil, fmt.Errorf("invalid credential expiry %q: %w", expiry, err)
		}
	}
	if cred.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid credential creation time %q: %w", createdAt, err)
	}
	return &cred, nil
}
