package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/latuang/petd/internal/constants"
)

type Store struct {
	Version int                        `json:"version"`
	Values  map[string]json.RawMessage `json:"values"`
}

type JSONStore struct {
	path     string
	mu       sync.Mutex
	store    *Store
	watchers watchers
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	// Initialize with default settings
	s.store = &Store{
		Version: 1,
		Values:  defaultValues(),
	}

	return s.save()
}

func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'petd init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = &Store{}
	if err := json.Unmarshal(data, s.store); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}

	// Ensure the value map is initialized
	if s.store.Values == nil {
		s.store.Values = make(map[string]json.RawMessage)
	}

	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// save writes the store to disk via a temp file and rename, so a crash
// mid-write (or a concurrent reader such as backup create) never observes a
// torn file. Callers must hold s.mu.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace storage: %w", err)
	}

	return nil
}

func (s *JSONStore) Get(keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, fmt.Errorf("storage not loaded")
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := s.store.Values[key]; ok {
			out[key] = append(json.RawMessage(nil), raw...)
		}
	}

	return out, nil
}

func (s *JSONStore) Set(values map[string]json.RawMessage) error {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		return fmt.Errorf("storage not loaded")
	}

	batch := make([]Change, 0, len(values))
	for key, raw := range values {
		batch = append(batch, Change{
			Key: key,
			Old: s.store.Values[key],
			New: append(json.RawMessage(nil), raw...),
		})
		s.store.Values[key] = append(json.RawMessage(nil), raw...)
	}

	if err := s.save(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	// Notify only after the write is durable, so listeners never read stale
	// state for this batch.
	s.watchers.notify(batch)
	return nil
}

func (s *JSONStore) Remove(keys ...string) error {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		return fmt.Errorf("storage not loaded")
	}

	var batch []Change
	for _, key := range keys {
		old, ok := s.store.Values[key]
		if !ok {
			continue
		}
		batch = append(batch, Change{Key: key, Old: old, New: nil})
		delete(s.store.Values, key)
	}

	if len(batch) == 0 {
		s.mu.Unlock()
		return nil
	}

	if err := s.save(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.watchers.notify(batch)
	return nil
}

func (s *JSONStore) Subscribe(fn func([]Change)) func() {
	return s.watchers.subscribe(fn)
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

// defaultValues seeds the settings every fresh store starts with.
func defaultValues() map[string]json.RawMessage {
	period, _ := json.Marshal(constants.DefaultPeriodMinutes)
	avatar, _ := json.Marshal(constants.DefaultAvatar)
	return map[string]json.RawMessage{
		constants.KeyPeriodMinutes: period,
		constants.KeyAvatar:        avatar,
	}
}
