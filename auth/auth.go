// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Identity kinds accepted from clients. They namespace the hashed identity
// so a fingerprint can never collide with an idempotency key.
const (
	KindFingerprint    = "fp"
	KindIdempotencyKey = "key"
)

var ErrEmptyIdentity = errors.New("voter identity is empty")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GeneratePollID creates an unguessable 128-bit poll identifier.
// URL-safe base64 without padding keeps it at 22 characters.
func GeneratePollID() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate poll ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSecret creates the creator secret for polls that hide results until vote
func GenerateSecret() string {
	return uuid.NewString()
}

// NewULID returns a time-ordered 26 char identifier
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SecretMatches compares a presented secret with the stored one in constant time.
// A poll without a secret never matches.
func SecretMatches(provided, expected string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(expected))
}

// HashIdentity derives the stored voter identity from a client supplied
// fingerprint or idempotency key. The raw value is never persisted.
func HashIdentity(kind, value, salt string) (string, error) {
	if value == "" {
		return "", ErrEmptyIdentity
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(kind))
	h.Write([]byte{':'})
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}
