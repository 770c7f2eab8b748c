package avalanche

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JackDalberg/go-avalanche/internal/bitops"
)

// ErrInvalidIterations is returned for a negative trial count.
var ErrInvalidIterations = errors.New("invalid iteration count")

func checkRun(iterations int, input []byte) error {
	if iterations < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}
	if iterations > 0 && len(input) == 0 {
		return &bitops.RangeError{Index: 0, Bits: 0}
	}
	return nil
}

// MeasureDiffusion flips one random plaintext bit per trial, encrypts the
// result with enc and returns the percentage of ciphertext bits that differ
// from refCiphertext, one value per trial in trial order.
//
// Trials run one after another because enc may hold state.
func MeasureDiffusion(enc Encrypter, refPlaintext, refCiphertext []byte, iterations int, opts ...Option) ([]float64, error) {
	if err := checkRun(iterations, refPlaintext); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	s.logger.Debug("diffusion run", "iterations", iterations, "plaintext_bytes", len(refPlaintext))

	nbits := 8 * len(refPlaintext)
	dist := make([]float64, 0, iterations)
	for trial := range iterations {
		pt, err := bitops.FlipBit(refPlaintext, s.rng.IntN(nbits))
		if err != nil {
			return nil, err
		}
		ct, err := enc.Encrypt(pt)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		dist = append(dist, bitops.Percent(ct, refCiphertext))
	}
	return dist, nil
}

// MeasureConfusion flips one random bit of refKey per trial, builds a new
// cipher of the given kind from the perturbed key, encrypts refPlaintext and
// returns the percentage of bits that differ from refCiphertext.
//
// The bits to flip are drawn up front in trial order, so the result does not
// depend on the number of workers.
func MeasureConfusion(ctx context.Context, kind Kind, refKey, refPlaintext, refCiphertext []byte, iterations int, opts ...Option) ([]float64, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCipherKind, kind)
	}
	if err := checkRun(iterations, refKey); err != nil {
		return nil, err
	}
	s := newSettings(opts)

	nbits := 8 * len(refKey)
	flips := make([]int, iterations)
	for n := range flips {
		flips[n] = s.rng.IntN(nbits)
	}

	trial := func(n int) (float64, error) {
		key, err := bitops.FlipBit(refKey, flips[n])
		if err != nil {
			return 0, err
		}
		enc, err := NewEncrypter(kind, key, WithDrop(s.drop))
		if err != nil {
			return 0, err
		}
		ct, err := enc.Encrypt(refPlaintext)
		if err != nil {
			return 0, err
		}
		return bitops.Percent(ct, refCiphertext), nil
	}

	workers := min(s.workers, iterations)
	s.logger.Debug("confusion run", "kind", kind, "iterations", iterations, "workers", workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dist := make([]float64, iterations)
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				v, err := trial(n)
				if err != nil {
					once.Do(func() {
						firstErr = fmt.Errorf("trial %d: %w", n, err)
						cancel()
					})
					continue
				}
				dist[n] = v
			}
		}()
	}

feed:
	for n := range iterations {
		select {
		case <-runCtx.Done():
			break feed
		case jobs <- n:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dist, nil
}
