package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesFileWithDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultFeedServer, cfg.FeedServerURL())
	assert.Equal(t, DefaultFeedTopic, cfg.FeedTopic())
	assert.True(t, cfg.FeedEnabled())
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval())
	assert.False(t, cfg.WifiOnly())
	assert.True(t, cfg.LastSyncTimestamp().IsZero())
	assert.Empty(t, cfg.ServerURL())
	assert.FileExists(t, cfg.Path())
}

// The syncer writes the last-sync timestamp while the dashboard
// fallback reads it; both paths must be safe under the race detector.
func TestConcurrentReadersAndWriters(t *testing.T) {
	cfg, err := Open(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(t, cfg.SetLastSyncTimestamp(time.Now()))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = cfg.LastSyncTimestamp()
				_ = cfg.ServerURL()
				_ = cfg.SyncInterval()
				_ = cfg.WifiOnly()
			}
		}()
	}
	wg.Wait()

	assert.False(t, cfg.LastSyncTimestamp().IsZero())
}

func TestSettingsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.SetServerURL("https://api.example.com"))

	ts := time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
	require.NoError(t, cfg.SetLastSyncTimestamp(ts))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", reopened.ServerURL())
	assert.Equal(t, ts.UnixMilli(), reopened.LastSyncTimestamp().UnixMilli())
}
