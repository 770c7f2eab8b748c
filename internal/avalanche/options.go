package avalanche

import (
	crand "crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"
	"math/rand/v2"
	"runtime"
)

type settings struct {
	rng     *rand.Rand
	drop    int
	workers int
	logger  *slog.Logger
}

// Option configures a harness run or NewEncrypter.
type Option func(*settings)

// WithRand sets the source used to pick the bits to flip. Passing a seeded
// generator makes a run reproducible.
func WithRand(r *rand.Rand) Option {
	return func(s *settings) {
		s.rng = r
	}
}

// WithSeed is WithRand with a PCG generator seeded from seed.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithDrop sets the number of initial RC4 keystream bytes to discard.
// Other kinds ignore it.
func WithDrop(n int) Option {
	return func(s *settings) {
		s.drop = n
	}
}

// WithWorkers bounds the number of goroutines a confusion run uses.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithLogger sets the logger for run progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		var seed [16]byte
		crand.Read(seed[:])
		s.rng = rand.New(rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}
