// avalanche measures diffusion and confusion of RC4, AES and ChaCha20 and
// exposes the RC4 engine on the command line.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/JackDalberg/go-avalanche/internal/avalanche"
	"github.com/JackDalberg/go-avalanche/internal/config"
	"github.com/JackDalberg/go-avalanche/internal/keys"
	"github.com/JackDalberg/go-avalanche/internal/logging"
	"github.com/JackDalberg/go-avalanche/internal/rc4"
	"github.com/JackDalberg/go-avalanche/internal/store"
)

var (
	configPath = flag.String("config", "", "path to experiment config file (.toml, .yaml or .json)")
	logLevel   = flag.String("log-level", "", "log level: debug, info, warn or error")
	logFormat  = flag.String("log-format", "", "log format: auto, text or json")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	case "diffusion", "confusion":
		err = cmdMeasure(cmd, args)
	case "encrypt":
		err = cmdEncrypt(args)
	case "keystream":
		err = cmdKeystream(args)
	case "runs":
		err = cmdRuns(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "avalanche %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `avalanche - diffusion and confusion measurements for symmetric ciphers

Usage: avalanche [options] <command> [flags]

Commands:
  diffusion   Flip random plaintext bits, report ciphertext bit changes
  confusion   Flip random key bits, report ciphertext bit changes
  encrypt     Encrypt a plaintext and print the hex ciphertext
  keystream   Print RC4 keystream bytes in hex
  runs        List runs stored in a database
  help        Show this help message

Options:
  -config <path>      Experiment config file
  -log-level <level>  debug, info, warn or error
  -log-format <fmt>   auto, text or json

Run "avalanche <command> -h" for the flags of a command.`)
}

// loadConfig reads the experiment config and applies the global log flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{Level: level, Format: format}), nil
}

func cmdEncrypt(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	fs.StringVar(&cfg.Cipher, "cipher", cfg.Cipher, "cipher: aes, rc4 or chacha20")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "hex key")
	fs.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "derive the key from a passphrase")
	fs.IntVar(&cfg.KeyLength, "keylen", cfg.KeyLength, "key length in bytes for -passphrase")
	fs.StringVar(&cfg.Plaintext, "plaintext", cfg.Plaintext, "hex plaintext")
	fs.StringVar(&cfg.PlaintextFile, "in", cfg.PlaintextFile, "read the plaintext from a file")
	fs.IntVar(&cfg.Drop, "drop", cfg.Drop, "RC4 keystream bytes to discard")
	fs.Parse(args)

	if cfg.Key == "" && cfg.Passphrase == "" {
		return fmt.Errorf("-key or -passphrase is required")
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
	ct, err := avalanche.Reference(kind, key, pt, avalanche.WithDrop(cfg.Drop))
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(ct))
	return nil
}

func cmdKeystream(args []string) error {
	fs := flag.NewFlagSet("keystream", flag.ExitOnError)
	keyHex := fs.String("key", "", "hex key (required)")
	n := fs.Int("n", 16, "number of keystream bytes")
	drop := fs.Int("drop", 0, "keystream bytes to discard after key scheduling")
	skip := fs.Int("skip", 0, "further bytes to skip before output")
	fs.Parse(args)

	key, err := keys.ParseHex(*keyHex)
	if err != nil {
		return err
	}
	c, err := rc4.New(key, rc4.WithDrop(*drop))
	if err != nil {
		return err
	}
	c.Skip(*skip)
	fmt.Println(hex.EncodeToString(c.Generate(*n)))
	return nil
}

func cmdRuns(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	fs.StringVar(&cfg.Database, "db", cfg.Database, "sqlite database (required)")
	limit := fs.Int("limit", 20, "maximum number of runs to list")
	id := fs.Int64("id", 0, "print the trials of one run")
	fs.Parse(args)

	if cfg.Database == "" {
		return fmt.Errorf("-db is required")
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if *id != 0 {
		run, err := st.GetRun(*id)
		if err != nil {
			return err
		}
		trials, err := st.Trials(run.ID)
		if err != nil {
			return err
		}
		return writeReport(os.Stdout, "text", newReport(run.Mode, run.Cipher, run.Seed, trials, 0))
	}

	runs, err := st.ListRuns(*limit)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-20s %-10s %-9s %5s %6s %8s %8s %8s\n", "ID", "CREATED", "MODE", "CIPHER", "KEY", "DROP", "TRIALS", "MEAN", "STDDEV")
	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-10s %-9s %5d %6d %8d %8.3f %8.3f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Cipher, r.KeyBytes, r.Drop, r.Iterations, r.Mean, r.StdDev)
	}
	return nil
}
