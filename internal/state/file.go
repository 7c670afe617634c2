package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileVersion is the current layout of the YAML state file.
const FileVersion = 1

// fileDoc is the on-disk layout. Version 0 files are a bare key/value mapping.
type fileDoc struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`
}

// FileStore keeps state in a YAML file, rewritten on every mutation.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFileStore loads (or creates) the state file at path.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	values, migrated, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	s.values = values
	if migrated {
		if err := s.flush(); err != nil {
			return nil, fmt.Errorf("migrate state file: %w", err)
		}
	}
	return s, nil
}

// decodeFile parses a state file of any known version and reports whether
// it had to be migrated to FileVersion.
func decodeFile(data []byte) (map[string]string, bool, error) {
	var probe struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, false, err
	}

	switch probe.Version {
	case 0:
		legacy := map[string]string{}
		if err := yaml.Unmarshal(data, &legacy); err != nil {
			return nil, false, err
		}
		return legacy, true, nil
	case FileVersion:
		var doc fileDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, false, err
		}
		if doc.Values == nil {
			doc.Values = map[string]string{}
		}
		return doc.Values, false, nil
	default:
		return nil, false, fmt.Errorf("unsupported state version %d (this client understands %d)", probe.Version, FileVersion)
	}
}

// flush writes the current values atomically. Callers hold s.mu.
func (s *FileStore) flush() error {
	data, err := yaml.Marshal(fileDoc{Version: FileVersion, Values: s.values})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.flush()
}

// Close is a no-op; every mutation is already on disk.
func (s *FileStore) Close() error { return nil }
