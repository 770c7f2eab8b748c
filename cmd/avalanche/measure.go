package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/JackDalberg/go-avalanche/internal/avalanche"
	"github.com/JackDalberg/go-avalanche/internal/capture"
	"github.com/JackDalberg/go-avalanche/internal/config"
	"github.com/JackDalberg/go-avalanche/internal/keys"
	"github.com/JackDalberg/go-avalanche/internal/store"
)

func cmdMeasure(mode string, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Mode = mode

	var output string
	var bins int
	fs := flag.NewFlagSet(mode, flag.ExitOnError)
	fs.StringVar(&cfg.Cipher, "cipher", cfg.Cipher, "cipher: aes, rc4 or chacha20")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "hex key")
	fs.IntVar(&cfg.KeyLength, "keylen", cfg.KeyLength, "key length in bytes when no -key is given")
	fs.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "derive the key from a passphrase")
	fs.StringVar(&cfg.Plaintext, "plaintext", cfg.Plaintext, "hex plaintext")
	fs.StringVar(&cfg.PlaintextFile, "in", cfg.PlaintextFile, "read the plaintext from a file")
	fs.StringVar(&cfg.PcapFile, "pcap", cfg.PcapFile, "use TCP payloads from a pcap file as plaintext")
	fs.IntVar(&cfg.PcapPort, "port", cfg.PcapPort, "TCP port to take payloads from (0 = any)")
	fs.IntVar(&cfg.PcapPackets, "packets", cfg.PcapPackets, "number of payloads to concatenate (0 = all)")
	fs.IntVar(&cfg.Iterations, "n", cfg.Iterations, "number of trials")
	fs.IntVar(&cfg.Drop, "drop", cfg.Drop, "RC4 keystream bytes to discard")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for picking bits (0 = random)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "goroutines for confusion trials (0 = one per CPU)")
	fs.StringVar(&cfg.Database, "db", cfg.Database, "record the run in this sqlite database")
	fs.StringVar(&output, "o", "text", "output format: text, json or yaml")
	fs.IntVar(&bins, "hist", 0, "print a histogram with this many bins")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	kind, err := avalanche.ParseKind(cfg.Cipher)
	if err != nil {
		return err
	}
	key, err := resolveKey(cfg)
	if err != nil {
		return err
	}
	pt, err := resolvePlaintext(cfg)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}

	opts := []avalanche.Option{
		avalanche.WithDrop(cfg.Drop),
		avalanche.WithSeed(cfg.Seed),
		avalanche.WithLogger(logger),
	}
	if cfg.Workers > 0 {
		opts = append(opts, avalanche.WithWorkers(cfg.Workers))
	}

	ref, err := avalanche.Reference(kind, key, pt, opts...)
	if err != nil {
		return fmt.Errorf("reference ciphertext: %w", err)
	}

	start := time.Now()
	var dist []float64
	switch mode {
	case "diffusion":
		enc, err := avalanche.NewEncrypter(kind, key, opts...)
		if err != nil {
			return err
		}
		dist, err = avalanche.MeasureDiffusion(enc, pt, ref, cfg.Iterations, opts...)
		if err != nil {
			return err
		}
	case "confusion":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		dist, err = avalanche.MeasureConfusion(ctx, kind, key, pt, ref, cfg.Iterations, opts...)
		if err != nil {
			return err
		}
	}

	rep := newReport(mode, kind.String(), cfg.Seed, dist, bins)
	logger.Info("run finished",
		"mode", mode,
		"cipher", kind,
		"trials", rep.Summary.N,
		"mean", rep.Summary.Mean,
		"elapsed", time.Since(start))

	if cfg.Database != "" {
		if err := saveRun(cfg, len(key), len(pt), rep); err != nil {
			return err
		}
		logger.Info("run stored", "database", cfg.Database)
	}
	return writeReport(os.Stdout, output, rep)
}

func saveRun(cfg *config.Config, keyBytes, ptBytes int, rep *report) error {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = st.SaveRun(&store.Run{
		Mode:           rep.Mode,
		Cipher:         rep.Cipher,
		KeyBytes:       keyBytes,
		PlaintextBytes: ptBytes,
		Drop:           cfg.Drop,
		Seed:           rep.Seed,
		Iterations:     rep.Summary.N,
		Mean:           rep.Summary.Mean,
		StdDev:         rep.Summary.StdDev,
	}, rep.Trials)
	return err
}

// resolveKey picks the key source: hex, then passphrase, then random.
func resolveKey(cfg *config.Config) ([]byte, error) {
	switch {
	case cfg.Key != "":
		return keys.ParseHex(cfg.Key)
	case cfg.Passphrase != "":
		return keys.FromPassphrase(cfg.Passphrase, nil, cfg.KeyLength)
	default:
		return keys.Random(cfg.KeyLength)
	}
}

// resolvePlaintext picks the plaintext source: file, then pcap, then hex.
func resolvePlaintext(cfg *config.Config) ([]byte, error) {
	switch {
	case cfg.PlaintextFile != "":
		return os.ReadFile(cfg.PlaintextFile)
	case cfg.PcapFile != "":
		f, err := os.Open(cfg.PcapFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		payloads, err := capture.Payloads(f, uint16(cfg.PcapPort), cfg.PcapPackets)
		if err != nil {
			return nil, err
		}
		if len(payloads) == 0 {
			return nil, fmt.Errorf("no TCP payloads in %s", cfg.PcapFile)
		}
		return bytes.Join(payloads, nil), nil
	default:
		return keys.ParseHex(cfg.Plaintext)
	}
}
