package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/polycubes/internal/ledger"
	"github.com/lukaszgryglicki/polycubes/internal/polycubes"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootPrintsGenerations(t *testing.T) {
	t.Parallel()
	out, err := execute(t, "--generations", "5", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "0: 1\n1: 1\n2: 1\n3: 2\n4: 8\n5: 29\n", out)
}

func TestRootStoresAndSymmetry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"disk", []string{"--store", "disk"}, "0: 1\n1: 1\n2: 1\n3: 2\n4: 8\n5: 29\n"},
		{"badger", []string{"--store", "badger"}, "0: 1\n1: 1\n2: 1\n3: 2\n4: 8\n5: 29\n"},
		{"full sorted", []string{"--symmetry", "full", "--canonicalizer", "sorted"}, "0: 1\n1: 1\n2: 1\n3: 2\n4: 7\n5: 23\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := append([]string{"-n", "5", "--log-level", "error", "--dir", t.TempDir()}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "polycubes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generations: 6\nsymmetry: full\nlog_level: error\n"), 0o644))

	out, err := execute(t, "--config", path, "--generations", "4")
	require.NoError(t, err)
	assert.Equal(t, "0: 1\n1: 1\n2: 1\n3: 2\n4: 7\n", out, "symmetry from the file, generations from the flag")
}

func TestOverlayFlagsOnlyChanged(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "3"}))
	cfg := polycubes.DefaultConfig()
	cfg.Symmetry = polycubes.SymmetryFull
	flags := polycubes.DefaultConfig()
	flags.Workers = 3
	overlayFlags(cmd, &cfg, flags)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, polycubes.SymmetryFull, cfg.Symmetry)
}

func TestRootRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "--symmetry", "mirror")
	assert.ErrorIs(t, err, polycubes.ErrInvalidConfig)
	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = execute(t, "extra")
	assert.Error(t, err)
}

func TestRootWritesLedger(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, "-n", "4", "--log-level", "error", "--ledger", path)
	require.NoError(t, err)

	l, err := ledger.Open(path)
	require.NoError(t, err)
	defer l.Close()
	var runID string
	require.NoError(t, l.QueryRow(`SELECT run_id FROM runs WHERE finished_at IS NOT NULL`).Scan(&runID))
	counts, err := l.Counts(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 2, 8}, counts)
}

func TestRunCancelledIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := polycubes.DefaultConfig()
	cfg.LogLevel = "error"
	var out bytes.Buffer
	require.NoError(t, run(ctx, cfg, &out, &bytes.Buffer{}))
	assert.Equal(t, "0: 1\n", out.String())
}

// cancelAfter cancels the run once it has printed n report lines.
type cancelAfter struct {
	bytes.Buffer
	n      int
	cancel context.CancelFunc
}

func (w *cancelAfter) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if bytes.Count(w.Bytes(), []byte("\n")) >= w.n {
		w.cancel()
	}
	return n, err
}

func TestInterruptedRunIsRecorded(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := polycubes.DefaultConfig()
	cfg.LogLevel = "error"
	cfg.Ledger = filepath.Join(t.TempDir(), "runs.db")
	out := &cancelAfter{n: 4, cancel: cancel}
	require.NoError(t, run(ctx, cfg, out, &bytes.Buffer{}))
	assert.Equal(t, "0: 1\n1: 1\n2: 1\n3: 2\n", out.String())

	l, err := ledger.Open(cfg.Ledger)
	require.NoError(t, err)
	defer l.Close()
	var (
		runID  string
		runErr sql.NullString
	)
	require.NoError(t, l.QueryRow(`SELECT run_id, error FROM runs WHERE finished_at IS NOT NULL`).Scan(&runID, &runErr))
	assert.True(t, runErr.Valid)
	assert.Equal(t, "interrupted", runErr.String)
	counts, err := l.Counts(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 2}, counts)
}

func TestCompletedRunHasNoError(t *testing.T) {
	t.Parallel()
	cfg := polycubes.DefaultConfig()
	cfg.LogLevel = "error"
	cfg.Generations = 3
	cfg.Ledger = filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, run(context.Background(), cfg, &bytes.Buffer{}, &bytes.Buffer{}))

	l, err := ledger.Open(cfg.Ledger)
	require.NoError(t, err)
	defer l.Close()
	var runErr sql.NullString
	require.NoError(t, l.QueryRow(`SELECT error FROM runs WHERE finished_at IS NOT NULL`).Scan(&runErr))
	assert.False(t, runErr.Valid)
}

func TestRootWritesCPUProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")
	_, err := execute(t, "-n", "3", "--log-level", "error", "--cpuprofile", path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
