package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Refresh tokens are opaque random strings. Only their SHA-256 is stored.

func newRefreshSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashRefreshToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// IssueRefreshToken stores a new token for the user and returns its secret.
func (r *Repo) IssueRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, time.Time, error) {
	secret, err := newRefreshSecret()
	if err != nil {
		return "", time.Time{}, err
	}
	exp := time.Now().Add(ttl).UTC()

	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), userID, hashRefreshToken(secret), exp); err != nil {
		return "", time.Time{}, fmt.Errorf("insert refresh token: %w", err)
	}
	return secret, exp, nil
}

// ConsumeRefreshToken revokes the presented token and returns its owner.
// Presenting an already revoked token revokes every token of that user,
// since it means the token was copied.
func (r *Repo) ConsumeRefreshToken(ctx context.Context, secret string) (*User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id, userID string
		expiresAt  time.Time
		revokedAt  sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`, hashRefreshToken(secret)).Scan(&id, &userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if revokedAt.Valid {
		if _, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP
			WHERE user_id = ? AND revoked_at IS NULL
		`, userID); err != nil {
			return nil, fmt.Errorf("revoke reused family: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit revoke: %w", err)
		}
		return nil, ErrTokenInvalid
	}
	if time.Now().After(expiresAt) {
		return nil, ErrTokenInvalid
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load refresh owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit refresh: %w", err)
	}
	return u, nil
}

func (r *Repo) RevokeRefreshTokens(ctx context.Context, userID string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
