package rc4

import (
	"bytes"
	stdrc4 "crypto/rc4"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isPermutation(s [256]byte) bool {
	var seen [256]bool
	for _, v := range s {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func TestKnownAnswers(t *testing.T) {
	tests := []struct {
		key, plaintext, want string
	}{
		{"Key", "Plaintext", "BBF316E8D940AF0AD3"},
		{"Wiki", "pedia", "1021BF0420"},
		{"Secret", "Attack at dawn", "45A01F645FC35B383552544B9BF5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c, err := New([]byte(tt.key))
			require.NoError(t, err)
			got := c.Encrypt([]byte(tt.plaintext))
			assert.Equal(t, tt.want, strings.ToUpper(hex.EncodeToString(got)))
		})
	}
}

func TestInvalidKey(t *testing.T) {
	for _, n := range []int{0, 257, 1000} {
		c, err := New(make([]byte, n))
		assert.Nil(t, c)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidKey), "len %d: %v", n, err)
		var kse KeySizeError
		require.True(t, errors.As(err, &kse))
		assert.Equal(t, n, int(kse))
	}

	_, err := New(make([]byte, 256))
	assert.NoError(t, err)
	_, err = New([]byte{0})
	assert.NoError(t, err)
}

func TestInvalidDrop(t *testing.T) {
	c, err := New([]byte("Key"), WithDrop(-1))
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrInvalidDrop)
}

func TestPermutationInvariant(t *testing.T) {
	c, err := New([]byte("permutation invariant"))
	require.NoError(t, err)
	require.True(t, isPermutation(c.State()), "after key schedule")

	for step := range 4096 {
		c.Generate(1)
		if !isPermutation(c.State()) {
			t.Fatalf("state is not a permutation after step %d", step)
		}
	}
}

func TestMatchesStandardLibrary(t *testing.T) {
	keys := [][]byte{
		{1},
		[]byte("Key"),
		bytes.Repeat([]byte{0xA5}, 16),
		bytes.Repeat([]byte{0x3C}, 256),
	}
	for _, key := range keys {
		ref, err := stdrc4.NewCipher(key)
		require.NoError(t, err)
		want := make([]byte, 1024)
		ref.XORKeyStream(want, want)

		c, err := New(key)
		require.NoError(t, err)
		assert.Equal(t, want, c.Generate(1024))
	}
}

func TestDrop(t *testing.T) {
	key := []byte("drop test")
	plain, err := New(key)
	require.NoError(t, err)
	full := plain.Generate(768 + 32)

	dropped, err := New(key, WithDrop(768))
	require.NoError(t, err)
	assert.Equal(t, 768, dropped.Drop())
	assert.Equal(t, full[768:784], dropped.Generate(16))
	// the drop happens once only
	assert.Equal(t, full[784:800], dropped.Generate(16))
}

func TestDropAppliesBeforeSkip(t *testing.T) {
	key := []byte("skip")
	ref, err := New(key)
	require.NoError(t, err)
	full := ref.Generate(20)

	c, err := New(key, WithDrop(5))
	require.NoError(t, err)
	c.Skip(3)
	assert.Equal(t, full[8:20], c.Generate(12))
}

func TestStatefulEncrypt(t *testing.T) {
	c, err := New([]byte("Key"))
	require.NoError(t, err)
	msg := []byte("same message")
	first := c.Encrypt(msg)
	second := c.Encrypt(msg)
	assert.NotEqual(t, first, second)
}

func TestSymmetry(t *testing.T) {
	key := []byte("symmetric key")
	msg := []byte("Attack at dawn, retreat at dusk.")
	for _, drop := range []int{0, 1, 256, 3072} {
		enc, err := New(key, WithDrop(drop))
		require.NoError(t, err)
		dec, err := New(key, WithDrop(drop))
		require.NoError(t, err)
		ct := enc.Encrypt(msg)
		assert.Equal(t, msg, dec.Decrypt(ct), "drop %d", drop)
	}
}

func TestDeterminism(t *testing.T) {
	a, err := New([]byte("determinism"), WithDrop(42))
	require.NoError(t, err)
	b, err := New([]byte("determinism"), WithDrop(42))
	require.NoError(t, err)
	for range 10 {
		require.Equal(t, a.Generate(37), b.Generate(37))
	}
}

func TestReset(t *testing.T) {
	c, err := New([]byte("reset"), WithDrop(10))
	require.NoError(t, err)
	first := c.Generate(64)
	c.Generate(100)
	c.Reset()
	assert.Equal(t, first, c.Generate(64))
}

func TestFork(t *testing.T) {
	c, err := New([]byte("fork"), WithDrop(3))
	require.NoError(t, err)
	c.Generate(17)

	child := c.Fork()
	assert.Equal(t, c.Generate(50), child.Generate(50))

	child.Generate(1)
	assert.NotEqual(t, c.Generate(8), child.Generate(8), "forks advance independently")

	c.Reset()
	child.Reset()
	assert.Equal(t, c.Generate(8), child.Generate(8))
}

func TestXORKeyStreamInPlace(t *testing.T) {
	c, err := New([]byte("Key"))
	require.NoError(t, err)
	buf := []byte("Plaintext")
	c.XORKeyStream(buf, buf)
	assert.Equal(t, "bbf316e8d940af0ad3", hex.EncodeToString(buf))

	c.XORKeyStream(nil, nil)
	assert.Empty(t, c.Generate(0))
}
