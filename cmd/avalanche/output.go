package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JackDalberg/go-avalanche/internal/avalanche"
)

type report struct {
	Mode      string            `json:"mode" yaml:"mode"`
	Cipher    string            `json:"cipher" yaml:"cipher"`
	Seed      uint64            `json:"seed" yaml:"seed"`
	Summary   avalanche.Summary `json:"summary" yaml:"summary"`
	Histogram []int             `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	Trials    []float64         `json:"trials" yaml:"trials"`
}

func newReport(mode, cipher string, seed uint64, trials []float64, bins int) *report {
	return &report{
		Mode:      mode,
		Cipher:    cipher,
		Seed:      seed,
		Summary:   avalanche.Summarize(trials),
		Histogram: avalanche.Histogram(trials, bins),
		Trials:    trials,
	}
}

func writeReport(w io.Writer, format string, rep *report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return writeText(w, rep)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, rep *report) error {
	s := rep.Summary
	fmt.Fprintf(w, "# %s %s seed=%d\n", rep.Mode, rep.Cipher, rep.Seed)
	fmt.Fprintf(w, "# trials=%d mean=%.4f stddev=%.4f min=%.4f max=%.4f\n", s.N, s.Mean, s.StdDev, s.Min, s.Max)

	if len(rep.Histogram) > 0 {
		const width = 50
		top := slices.Max(rep.Histogram)
		step := 100 / float64(len(rep.Histogram))
		for i, c := range rep.Histogram {
			bar := 0
			if top > 0 {
				bar = c * width / top
			}
			fmt.Fprintf(w, "# %6.2f-%6.2f %6d %s\n", float64(i)*step, float64(i+1)*step, c, strings.Repeat("#", bar))
		}
	}

	for _, v := range rep.Trials {
		if _, err := fmt.Fprintf(w, "%.4f\n", v); err != nil {
			return err
		}
	}
	return nil
}
