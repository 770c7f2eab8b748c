package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JackDalberg/go-avalanche/internal/config"
)

func TestWriteReport(t *testing.T) {
	rep := newReport("confusion", "rc4", 7, []float64{25, 50, 75}, 4)
	assert.Equal(t, []int{0, 1, 1, 1}, rep.Histogram)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "text", rep))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "# confusion rc4 seed=7", lines[0])
	assert.Contains(t, lines[1], "mean=50.0000")
	assert.Equal(t, []string{"25.0000", "50.0000", "75.0000"}, lines[len(lines)-3:])

	buf.Reset()
	require.NoError(t, writeReport(&buf, "json", rep))
	var fromJSON report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, *rep, fromJSON)

	buf.Reset()
	require.NoError(t, writeReport(&buf, "yaml", rep))
	var fromYAML report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, *rep, fromYAML)

	assert.Error(t, writeReport(&buf, "xml", rep))
}

func TestResolveKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Key = "4b6579"
	key, err := resolveKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte("Key"), key)

	cfg.Key = ""
	cfg.Passphrase = "secret"
	cfg.KeyLength = 24
	a, err := resolveKey(cfg)
	require.NoError(t, err)
	b, err := resolveKey(cfg)
	require.NoError(t, err)
	assert.Len(t, a, 24)
	assert.Equal(t, a, b)

	cfg.Passphrase = ""
	random, err := resolveKey(cfg)
	require.NoError(t, err)
	assert.Len(t, random, 24)
}

func TestResolvePlaintext(t *testing.T) {
	cfg := config.DefaultConfig()
	pt, err := resolvePlaintext(cfg)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), pt)

	path := filepath.Join(t.TempDir(), "plain.bin")
	require.NoError(t, os.WriteFile(path, []byte("raw file bytes"), 0600))
	cfg.PlaintextFile = path
	pt, err = resolvePlaintext(cfg)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw file bytes"), pt)

	cfg.PlaintextFile = ""
	cfg.PcapFile = filepath.Join(t.TempDir(), "missing.pcap")
	_, err = resolvePlaintext(cfg)
	assert.Error(t, err)
}
