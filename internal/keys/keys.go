// Package keys produces cipher keys from hex strings, random bytes or a
// passphrase.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// ErrInvalidLength is returned when a key length is not positive.
var ErrInvalidLength = errors.New("invalid key length")

const passphraseInfo = "avalanche key v1"

// ParseHex decodes a hex key, ignoring surrounding whitespace and an
// optional 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return key, nil
}

// Random returns n bytes from crypto/rand.
func Random(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("read random key: %w", err)
	}
	return key, nil
}

// FromPassphrase derives an n-byte key with HKDF-SHA256. The same
// passphrase and salt always give the same key.
func FromPassphrase(passphrase string, salt []byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	r := hkdf.New(sha256.New, []byte(passphrase), salt, []byte(passphraseInfo))
	key := make([]byte, n)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
