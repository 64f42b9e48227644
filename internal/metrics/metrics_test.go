package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/maiasaura/internal/commit"
	"github.com/John-Robertt/maiasaura/internal/domain"
)

func TestCollector_CountsCommitOutcomes(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "album")
	require.NoError(t, os.Mkdir(dir, 0o755))
	var entries []domain.FileEntry
	for _, n := range []string{"b.mp3", "a.mp3"} {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("12345"), 0o644))
		entries = append(entries, domain.FileEntry{Path: p, Name: n})
	}

	m := New()
	c := commit.New(commit.Options{Observer: m})

	_, err := c.Commit(context.Background(), dir, entries)
	require.NoError(t, err)

	_, err = c.Commit(context.Background(), dir, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues(domain.StatusCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues(domain.ErrCodeValidation)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.files))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
	assert.NotZero(t, testutil.ToFloat64(m.lastSuccess))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "committed", Outcome(nil))
	assert.Equal(t, "unrecoverable", Outcome(&commit.Error{Kind: commit.KindUnrecoverable}))
	assert.Equal(t, "filesystem_failed", Outcome(&commit.Error{Kind: commit.KindFilesystem}))
	assert.Equal(t, "unknown", Outcome(errors.New("boom")))
}

func TestCollector_WriteTextfile(t *testing.T) {
	m := New()
	m.OnDone(commit.Result{FinishedAt: time.Unix(1700000000, 0)}, nil, 1500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "textfile", "maiasaura.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `maiasaura_commits_total{outcome="committed"} 1`)
	assert.Contains(t, out, "maiasaura_last_success_timestamp_seconds 1.7e+09")
	assert.Contains(t, out, "maiasaura_commit_duration_seconds_count{outcome=\"committed\"} 1")

	assert.NoError(t, m.WriteTextfile(""))
}
