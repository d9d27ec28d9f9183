package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// encPrefix marks values that were written with AES-256-GCM encryption, so
// a repo can still read tokens written before a key was configured.
const encPrefix = "enc:"

// TokenRepo is the SQLite implementation of the TokenStore port. When
// constructed with a 32-byte key, token values are encrypted with
// AES-256-GCM before write; with a nil key they are stored as-is.
type TokenRepo struct {
	db  *DB
	key []byte
}

// NewTokenRepo creates a TokenRepo. key must be 32 bytes for AES-256-GCM,
// or nil to store tokens unencrypted.
func NewTokenRepo(db *DB, key []byte) *TokenRepo {
	return &TokenRepo{db: db, key: key}
}

// Set stores or replaces the token under the given slot name.
func (r *TokenRepo) Set(ctx context.Context, name, token string) error {
	value := token
	if r.key != nil {
		encrypted, err := r.encrypt(token)
		if err != nil {
			return fmt.Errorf("encrypt token %q: %w", name, err)
		}
		value = encPrefix + encrypted
	}

	const query = `INSERT OR REPLACE INTO session_tokens (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("set token %q: %w", name, err)
	}
	return nil
}

// Get retrieves the token stored under the given slot name.
// Returns ("", nil) if the slot is empty.
func (r *TokenRepo) Get(ctx context.Context, name string) (string, error) {
	const query = `SELECT value FROM session_tokens WHERE name = ?`
	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token %q: %w", name, err)
	}

	if len(value) >= len(encPrefix) && value[:len(encPrefix)] == encPrefix {
		if r.key == nil {
			return "", fmt.Errorf("get token %q: stored value is encrypted but no key is configured", name)
		}
		plaintext, err := r.decrypt(value[len(encPrefix):])
		if err != nil {
			return "", fmt.Errorf("decrypt token %q: %w", name, err)
		}
		return plaintext, nil
	}

	return value, nil
}

// Delete removes the slot. Deleting an absent slot is a no-op.
func (r *TokenRepo) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM session_tokens WHERE name = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("delete token %q: %w", name, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *TokenRepo) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *TokenRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
