// Package state persists the client's identity, condition and UI flags
// as a flat set of string keys.
package state

import (
	"fmt"
	"sync"

	"github.com/raphaelgruber/companion/internal/config"
)

// Keys stored by the client. All values are strings.
const (
	KeyUserID           = "user_id"
	KeySessionID        = "session_id"
	KeyUsername         = "username"
	KeyConditionID      = "condition_id"
	KeyDeveloperMode    = "developer_mode"
	KeySeenMenuTutorial = "has_seen_menu_tutorial"
	KeySeenChatTutorial = "has_seen_chat_tutorial"
)

// Store is a flat string key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Clear deletes every key.
	Clear() error

	// Close releases the underlying resources.
	Close() error
}

// Open returns the store for the configured backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case config.StateFile, "":
		return OpenFileStore(path)
	case config.StateSQLite:
		return NewSQLiteStore(path)
	case config.StateMemory:
		return NewMemoryStore(), nil
	case config.StateNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// NopStore is used when there is nowhere to persist state. Every operation is a no-op.
type NopStore struct{}

func (NopStore) Get(string) (string, bool) { return "", false }
func (NopStore) Set(string, string) error  { return nil }
func (NopStore) Remove(string) error       { return nil }
func (NopStore) Clear() error              { return nil }
func (NopStore) Close() error              { return nil }

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
