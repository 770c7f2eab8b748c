package avalanche

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/JackDalberg/go-avalanche/internal/blockcipher"
	"github.com/JackDalberg/go-avalanche/internal/rc4"
)

// An Encrypter encrypts a whole message. Encrypt must depend on nothing but
// the key and the plaintext: the harnesses compare repeated encryptions
// against one fixed reference.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

// NewEncrypter builds a fresh Encrypter of the given kind from key.
func NewEncrypter(kind Kind, key []byte, opts ...Option) (Encrypter, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	switch kind {
	case KindAES:
		e, err := blockcipher.NewAES(key)
		if err != nil {
			return nil, err
		}
		return e, nil
	case KindRC4:
		c, err := rc4.New(key, rc4.WithDrop(s.drop))
		if err != nil {
			return nil, err
		}
		return &rc4Encrypter{c: c}, nil
	case KindChaCha20:
		if _, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize)); err != nil {
			return nil, err
		}
		return &chachaEncrypter{key: bytes.Clone(key)}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCipherKind, kind)
	}
}

// Reference encrypts plaintext once with a fresh encrypter, giving the
// ciphertext a harness run compares against.
func Reference(kind Kind, key, plaintext []byte, opts ...Option) ([]byte, error) {
	enc, err := NewEncrypter(kind, key, opts...)
	if err != nil {
		return nil, err
	}
	return enc.Encrypt(plaintext)
}

// rc4Encrypter restarts the keystream for every message.
type rc4Encrypter struct {
	c *rc4.Cipher
}

func (e *rc4Encrypter) Encrypt(plaintext []byte) ([]byte, error) {
	e.c.Reset()
	return e.c.Encrypt(plaintext), nil
}

// chachaEncrypter uses an all-zero nonce and a new cipher per message.
type chachaEncrypter struct {
	key []byte
}

func (e *chachaEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [chacha20.NonceSize]byte
	s, err := chacha20.NewUnauthenticatedCipher(e.key, nonce[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	s.XORKeyStream(out, plaintext)
	return out, nil
}
