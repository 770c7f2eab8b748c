package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCloseNilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	created := time.Unix(1700000000, 123)
	run := &Run{
		CreatedAt:      created,
		Mode:           "confusion",
		Cipher:         "rc4",
		KeyBytes:       16,
		PlaintextBytes: 64,
		Drop:           768,
		Seed:           1<<63 + 5,
		Iterations:     3,
		Mean:           49.5,
		StdDev:         2.25,
	}
	trials := []float64{48.25, 50, 50.25}

	id, err := s.SaveRun(run, trials)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)

	got, err := s.GetRun(id)
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt))
	got.CreatedAt = run.CreatedAt
	if d := cmp.Diff(run, got); d != "" {
		t.Errorf("stored run differs (-want +got):\n%s", d)
	}

	gotTrials, err := s.Trials(id)
	require.NoError(t, err)
	assert.Equal(t, trials, gotTrials)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(99)
	assert.ErrorIs(t, err, ErrNotFound)

	trials, err := s.Trials(99)
	require.NoError(t, err)
	assert.Empty(t, trials)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	for _, cipher := range []string{"aes", "rc4", "chacha20"} {
		_, err := s.SaveRun(&Run{Mode: "diffusion", Cipher: cipher}, nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "chacha20", runs[0].Cipher)
	assert.Equal(t, "rc4", runs[1].Cipher)
	assert.False(t, runs[0].CreatedAt.IsZero())
}
