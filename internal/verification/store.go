// Package verification holds single-use tokens that prove control of an
// e-mail address.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"time"
)

var (
	ErrTokenExists = errors.New("verification token already issued")
	ErrInvalidTTL  = errors.New("verification token ttl must be positive")
)

// Store keeps outstanding tokens keyed by their value. Redeem consumes the
// token: exactly one caller sees ok for a given value.
type Store interface {
	Put(ctx context.Context, value, owner string, ttl time.Duration) error
	Redeem(ctx context.Context, value string) (owner string, ok bool, err error)
}

const tokenBytes = 10

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateToken returns a random 16 character token that is easy to type.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return encoding.EncodeToString(b), nil
}
