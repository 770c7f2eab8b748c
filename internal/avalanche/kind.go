// Package avalanche measures how single-bit changes to a cipher's plaintext
// (diffusion) or key (confusion) propagate into its ciphertext.
//
// Every trial flips one uniformly chosen input bit, re-encrypts and reports
// the Hamming distance to a fixed reference ciphertext as a percentage of
// its bit length. A cipher with a good avalanche effect scores close to 50.
package avalanche

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCipherKind is returned for a Kind outside the known set.
var ErrUnsupportedCipherKind = errors.New("unsupported cipher kind")

// Kind selects the cipher a confusion run re-keys on every trial.
type Kind int

const (
	KindAES Kind = iota + 1
	KindRC4
	KindChaCha20
)

var kindNames = map[Kind]string{
	KindAES:      "aes",
	KindRC4:      "rc4",
	KindChaCha20: "chacha20",
}

// Kinds lists the supported cipher kinds.
func Kinds() []Kind {
	return []Kind{KindAES, KindRC4, KindChaCha20}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a case-insensitive name such as "rc4" to its Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCipherKind, s)
}
