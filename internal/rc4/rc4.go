// Package rc4 implements the RC4 stream cipher with optional keystream drop
// (RC4-drop[n]).
//
// RC4 is cryptographically broken. This package exists as a reference
// implementation for measuring avalanche behaviour, not for protecting data.
package rc4

import (
	"crypto/cipher"
	"errors"
	"strconv"
)

var (
	// ErrInvalidKey is returned for keys outside 1..256 bytes.
	ErrInvalidKey = errors.New("rc4: invalid key")
	// ErrInvalidDrop is returned for a negative drop count.
	ErrInvalidDrop = errors.New("rc4: invalid drop count")
)

// KeySizeError reports the length of a rejected key.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "rc4: invalid key size " + strconv.Itoa(int(k))
}

func (k KeySizeError) Is(target error) bool {
	return target == ErrInvalidKey
}

// noCopy makes go vet's copylocks check flag copies of a Cipher.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// A Cipher is an RC4 keystream generator. Every output byte advances its
// internal state, so a Cipher must not be copied or shared; use Fork to
// replay from the current state on purpose.
type Cipher struct {
	_ noCopy

	state     [256]uint8
	initState [256]uint8
	i, j      uint8

	drop    int
	dropped int
}

var _ cipher.Stream = (*Cipher)(nil)

// Option configures a Cipher.
type Option func(*Cipher)

// WithDrop discards the first n keystream bytes before any output is used.
func WithDrop(n int) Option {
	return func(c *Cipher) {
		c.drop = n
	}
}

// New runs the key schedule for key.
func New(key []byte, opts ...Option) (*Cipher, error) {
	k := len(key)
	if k < 1 || k > 256 {
		return nil, KeySizeError(k)
	}
	c := &Cipher{}
	for _, opt := range opts {
		opt(c)
	}
	if c.drop < 0 {
		return nil, ErrInvalidDrop
	}
	for i := range 256 {
		c.state[i] = uint8(i)
	}
	var j uint8
	for i := range 256 {
		j += c.state[i] + key[i%k]
		c.state[i], c.state[j] = c.state[j], c.state[i]
	}
	c.initState = c.state
	return c, nil
}

// Reset restores the state right after key scheduling. The configured drop
// is applied again on the next use.
func (c *Cipher) Reset() {
	c.state = c.initState
	c.i, c.j = 0, 0
	c.dropped = 0
}

// Drop returns the configured drop count.
func (c *Cipher) Drop() int {
	return c.drop
}

func (c *Cipher) applyDrop() {
	if c.dropped < c.drop {
		c.skip(c.drop - c.dropped)
		c.dropped = c.drop
	}
}

// XORKeyStream sets dst to the result of XORing src with the key stream.
// Dst and src must overlap entirely or not at all.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	c.applyDrop()
	if len(src) == 0 {
		return
	}
	i, j := c.i, c.j
	_ = dst[len(src)-1]
	dst = dst[:len(src)]
	for k, v := range src {
		i++
		x := c.state[i]
		j += x
		y := c.state[j]
		c.state[i], c.state[j] = y, x
		dst[k] = v ^ c.state[x+y]
	}
	c.i, c.j = i, j
}

// Generate returns the next n keystream bytes.
func (c *Cipher) Generate(n int) []byte {
	if n <= 0 {
		c.applyDrop()
		return []byte{}
	}
	out := make([]byte, n)
	c.XORKeyStream(out, out)
	return out
}

// Encrypt XORs plaintext with the next len(plaintext) keystream bytes.
func (c *Cipher) Encrypt(plaintext []byte) []byte {
	out := make([]byte, len(plaintext))
	c.XORKeyStream(out, plaintext)
	return out
}

// Decrypt is Encrypt: XOR is its own inverse.
func (c *Cipher) Decrypt(ciphertext []byte) []byte {
	return c.Encrypt(ciphertext)
}

// Skip advances the keystream n bytes without producing output.
func (c *Cipher) Skip(n int) {
	c.applyDrop()
	c.skip(n)
}

func (c *Cipher) skip(n int) {
	i, j := c.i, c.j
	for range n {
		i++
		x := c.state[i]
		j += x
		y := c.state[j]
		c.state[i], c.state[j] = y, x
	}
	c.i, c.j = i, j
}

// Fork returns an independent Cipher positioned at exactly the same point of
// the keystream. Both will produce the same bytes from here on.
func (c *Cipher) Fork() *Cipher {
	child := &Cipher{
		state:     c.state,
		initState: c.initState,
		i:         c.i,
		j:         c.j,
		drop:      c.drop,
		dropped:   c.dropped,
	}
	return child
}

// State returns a copy of the current permutation.
func (c *Cipher) State() [256]byte {
	return c.state
}
