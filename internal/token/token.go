// Package token generates the opaque bearer tokens embedded in survey links.
//
// A token is the only credential a respondent presents, so it carries 256
// bits from crypto/rand and is never derived from anything guessable.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// Bytes is the amount of randomness in a token.
	Bytes = 32
	// Length is the encoded length of a token.
	Length = 43
)

var encoding = base64.RawURLEncoding

// New returns a fresh URL-safe token.
func New() (string, error) {
	buf := make([]byte, Bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return encoding.EncodeToString(buf), nil
}

// Valid reports whether s has the shape of a token produced by New.
// It is a cheap pre-check before hitting the store and says nothing about
// whether the token was ever issued.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	b, err := encoding.DecodeString(s)
	return err == nil && len(b) == Bytes
}
