// Package blockcipher adapts crypto/cipher block ciphers to the stateless
// encrypt operation the avalanche harnesses need.
package blockcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	// ErrNotFullBlocks is returned when the input is not a whole number of blocks.
	ErrNotFullBlocks = errors.New("input not full blocks")
	// ErrInvalidKeySize is returned by NewAES for keys that are not 16, 24 or 32 bytes.
	ErrInvalidKeySize = errors.New("invalid AES key size")
)

// ECB encrypts each block independently, so Encrypt is a pure function of
// the key and the input. That is what makes single-bit comparisons between
// repeated encryptions meaningful.
type ECB struct {
	b cipher.Block
}

// NewECB wraps b.
func NewECB(b cipher.Block) *ECB {
	return &ECB{b: b}
}

// NewAES returns AES in ECB mode.
func NewAES(key []byte) (*ECB, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(key))
	}
	return NewECB(b), nil
}

// BlockSize returns the size of the underlying cipher block.
func (e *ECB) BlockSize() int {
	return e.b.BlockSize()
}

func (e *ECB) Encrypt(plaintext []byte) ([]byte, error) {
	bs := e.b.BlockSize()
	if len(plaintext)%bs != 0 {
		return nil, fmt.Errorf("%w: %d bytes, block size %d", ErrNotFullBlocks, len(plaintext), bs)
	}
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += bs {
		e.b.Encrypt(out[i:i+bs], plaintext[i:i+bs])
	}
	return out, nil
}

func (e *ECB) Decrypt(ciphertext []byte) ([]byte, error) {
	bs := e.b.BlockSize()
	if len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: %d bytes, block size %d", ErrNotFullBlocks, len(ciphertext), bs)
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += bs {
		e.b.Decrypt(out[i:i+bs], ciphertext[i:i+bs])
	}
	return out, nil
}
