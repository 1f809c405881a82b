// Package auth authenticates administrators: password hashing, locally issued
// PASETO access tokens and optional verification of external identity tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyFileName is the file holding the hex-encoded PASETO key inside the key directory.
const keyFileName = "auth.key"

// LoadOrGenerateKey returns the hex-encoded PASETO v4 key stored in dir,
// creating and persisting a fresh random key on first run.
func LoadOrGenerateKey(dir string) (string, error) {
	keyPath := filepath.Join(dir, keyFileName)

	//#nosec G304 -- key path comes from configuration
	if data, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(data))
		if _, err := decodeKey(keyHex); err != nil {
			return "", fmt.Errorf("auth key %s: %w", keyPath, err)
		}
		return keyHex, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate auth key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("save auth key: %w", err)
	}

	return keyHex, nil
}

func decodeKey(keyHex string) ([]byte, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("key must be %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	return key, nil
}
