package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/planview/test"
)

func TestWatcherReloadsChangedFile(t *testing.T) {
	data, err := os.ReadFile(test.SamplePath(t, "hash_join.txt"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	srv := New(Config{Logger: zerolog.New(zerolog.NewTestWriter(t))})
	id, err := srv.LoadFile(path)
	require.NoError(t, err)

	w, err := newWatcher(srv)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	updated, err := os.ReadFile(test.SamplePath(t, "analyze.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	v, ok := srv.host.Get(id)
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		return v.Stats().NodeCount == 8
	}, 3*time.Second, 20*time.Millisecond)
}
