package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Preference keys. The file is owned by the user and the settings
// surface; outpost only writes sync.last_sync_timestamp.
const (
	keyServerURL    = "server_url"
	keyFeedServer   = "feed.server_url"
	keyFeedTopic    = "feed.topic"
	keyFeedEnabled  = "feed.enabled"
	keySyncInterval = "sync.interval_minutes"
	keyWifiOnly     = "sync.wifi_only"
	keyLastSync     = "sync.last_sync_timestamp"
	keyLogLevel     = "log.level"
	keyLogJSON      = "log.json"
)

// Defaults mirror the settings screen defaults of the mobile app.
const (
	DefaultFeedServer   = "https://ntfy.sh"
	DefaultFeedTopic    = "longbark-notifications"
	DefaultSyncInterval = 15 // minutes
)

// Store is the persisted preference store, a YAML file managed through
// viper. All getters read the in-memory snapshot; Set* methods write
// the file back so values survive restarts. Viper itself is not safe
// for concurrent use, and the syncer writes the last-sync timestamp
// while the dashboard fallback reads it, so every access goes through
// the store's lock.
type Store struct {
	v    *viper.Viper
	path string
	mu   sync.RWMutex
}

// Open loads preferences from dir/outpost.yaml, creating the file with
// defaults on first run.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, "outpost.yaml")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault(keyServerURL, "")
	v.SetDefault(keyFeedServer, DefaultFeedServer)
	v.SetDefault(keyFeedTopic, DefaultFeedTopic)
	v.SetDefault(keyFeedEnabled, true)
	v.SetDefault(keySyncInterval, DefaultSyncInterval)
	v.SetDefault(keyWifiOnly, false)
	v.SetDefault(keyLastSync, int64(0))
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogJSON, false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to write initial config: %w", err)
		}
	}

	return &Store{v: v, path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// ServerURL is the remote API base URL.
func (s *Store) ServerURL() string { return s.getString(keyServerURL) }

// SetServerURL persists a new API base URL.
func (s *Store) SetServerURL(url string) error { return s.set(keyServerURL, url) }

// FeedServerURL is the alert feed server base URL.
func (s *Store) FeedServerURL() string { return s.getString(keyFeedServer) }

// FeedTopic is the alert feed topic to subscribe to.
func (s *Store) FeedTopic() string { return s.getString(keyFeedTopic) }

// FeedEnabled reports whether the live alert stream should run.
func (s *Store) FeedEnabled() bool { return s.getBool(keyFeedEnabled) }

// SyncInterval is the base period of the background sync job.
func (s *Store) SyncInterval() time.Duration {
	s.mu.RLock()
	minutes := s.v.GetInt(keySyncInterval)
	s.mu.RUnlock()
	if minutes <= 0 {
		minutes = DefaultSyncInterval
	}
	return time.Duration(minutes) * time.Minute
}

// WifiOnly reports the metered-network sync constraint.
func (s *Store) WifiOnly() bool { return s.getBool(keyWifiOnly) }

// LastSyncTimestamp is the wall-clock completion time of the last
// successful sync run, zero when no run has succeeded yet.
func (s *Store) LastSyncTimestamp() time.Time {
	s.mu.RLock()
	millis := s.v.GetInt64(keyLastSync)
	s.mu.RUnlock()
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// SetLastSyncTimestamp records a successful sync completion. Written by
// the sync scheduler, read by the dashboard fallback path.
func (s *Store) SetLastSyncTimestamp(t time.Time) error {
	return s.set(keyLastSync, t.UnixMilli())
}

// LogLevel is the configured log level string.
func (s *Store) LogLevel() string { return s.getString(keyLogLevel) }

// LogJSON reports whether logs should be emitted as JSON.
func (s *Store) LogJSON() bool { return s.getBool(keyLogJSON) }

func (s *Store) getString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

func (s *Store) getBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(key)
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	return nil
}
