package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// MagicLinkStore holds the short-lived single-use tokens mailed out by the
// login endpoint.
type MagicLinkStore struct {
	db *sql.DB
}

func NewMagicLinkStore(db *sql.DB) *MagicLinkStore {
	return &MagicLinkStore{db: db}
}

// Create issues a login token for the user, valid for 15 minutes.
func (s *MagicLinkStore) Create(userID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	_, err := s.db.Exec(
		`INSERT INTO magic_links (token, user_id, expires_at)
		 VALUES (?, ?, datetime('now', '+15 minutes'))`,
		token, userID,
	)
	if err != nil {
		return "", fmt.Errorf("insert magic link: %w", err)
	}
	return token, nil
}

// Consume redeems a token, deleting it in the same statement so two
// concurrent redemptions cannot both succeed. Returns the owning user ID,
// or 0 if the token is unknown or expired.
func (s *MagicLinkStore) Consume(token string) (int64, error) {
	var userID int64
	err := s.db.QueryRow(
		`DELETE FROM magic_links WHERE token = ? AND expires_at > datetime('now') RETURNING user_id`,
		token,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("consume magic link: %w", err)
	}
	return userID, nil
}

func (s *MagicLinkStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_links WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
