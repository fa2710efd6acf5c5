package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/wemix/lagwatch/internal/alerting"
)

var stateKey = []byte("lagwatch/alert_state")

// LevelDBStore keeps the snapshot JSON encoded under a single key
type LevelDBStore struct {
	conn *leveldb.DB
}

// NewLevelDBStore opens (or creates) a LevelDB instance at the given path
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db %s: %w", path, err)
	}
	return &LevelDBStore{conn: db}, nil
}

// Load reads the snapshot, or the default state when the key is absent
func (l *LevelDBStore) Load() (alerting.State, error) {
	data, err := l.conn.Get(stateKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return alerting.DefaultState(), nil
		}
		return alerting.State{}, fmt.Errorf("failed to read state: %w", err)
	}

	var s alerting.State
	if err := json.Unmarshal(data, &s); err != nil {
		return alerting.State{}, fmt.Errorf("failed to decode state: %w", err)
	}
	if err := validate(s); err != nil {
		return alerting.State{}, err
	}
	return s, nil
}

// Save overwrites the snapshot
func (l *LevelDBStore) Save(s alerting.State) error {
	if err := validate(s); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := l.conn.Put(stateKey, data, nil); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Close safely closes the LevelDB connection
func (l *LevelDBStore) Close() error {
	return l.conn.Close()
}
