// Package state persists the alert state machine between cycles and restarts.
package state

import (
	"fmt"
	"strings"

	"github.com/wemix/lagwatch/internal/alerting"
)

// Backends
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Default locations used when no path is configured
const (
	DefaultPath        = "previous_state.yml"
	DefaultLevelDBPath = "lagwatch_state.db"
)

// Store loads and saves the alert state snapshot.
//
// Load returns alerting.DefaultState() when nothing has been saved yet.
// Callers access a Store from a single goroutine.
type Store interface {
	Load() (alerting.State, error)
	Save(state alerting.State) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ResolvedPath returns the configured path or the backend's default location
func (c Config) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	if strings.EqualFold(c.Backend, BackendLevelDB) {
		return DefaultLevelDBPath
	}
	return DefaultPath
}

// Open creates the configured store
func Open(cfg Config) (Store, error) {
	path := cfg.ResolvedPath()

	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendLevelDB:
		return NewLevelDBStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Backend)
	}
}

// Reset overwrites the stored snapshot with the default state
func Reset(store Store) error {
	return store.Save(alerting.DefaultState())
}

// validate rejects snapshots that cannot come from the state machine
func validate(s alerting.State) error {
	if !s.LastAlertLevel.Valid() {
		return fmt.Errorf("invalid alert level %d", s.LastAlertLevel)
	}
	return nil
}
