package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/wemix/lagwatch/internal/alerting"
)

// FileStore keeps the snapshot in a single file. The codec follows the
// extension: .toml, .json, anything else is YAML.
type FileStore struct {
	path   string
	format string
}

// NewFileStore creates a file store. The file is not touched until the first Save.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path not set")
	}

	format := "yaml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = "toml"
	case ".json":
		format = "json"
	}

	return &FileStore{path: path, format: format}, nil
}

// Path returns the state file path
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the snapshot. A missing or empty file yields the default state.
func (f *FileStore) Load() (alerting.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return alerting.DefaultState(), nil
		}
		return alerting.State{}, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return alerting.DefaultState(), nil
	}

	var s alerting.State
	switch f.format {
	case "toml":
		err = toml.Unmarshal(data, &s)
	case "json":
		err = json.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return alerting.State{}, fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	if err := validate(s); err != nil {
		return alerting.State{}, fmt.Errorf("state file %s: %w", f.path, err)
	}

	return s, nil
}

// Save writes the snapshot through a temp file renamed over the target
func (f *FileStore) Save(s alerting.State) error {
	if err := validate(s); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch f.format {
	case "toml":
		data, err = toml.Marshal(s)
	case "json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Close is a no-op for file stores
func (f *FileStore) Close() error {
	return nil
}
