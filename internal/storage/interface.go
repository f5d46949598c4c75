package storage

import "encoding/json"

// Change describes one key's transition within a write batch.
type Change struct {
	Key string
	Old json.RawMessage // nil if the key was absent before the write
	New json.RawMessage // nil if the key was removed
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Key-value access. Set persists the whole batch before returning, and
	// subscribers observe a multi-key Set as a single change batch.
	Get(keys ...string) (map[string]json.RawMessage, error)
	Set(values map[string]json.RawMessage) error
	Remove(keys ...string) error

	// Subscribe registers fn for future change batches. The returned
	// cancel func removes the subscription.
	Subscribe(fn func([]Change)) (cancel func())

	// Utils
	GetConfigPath() string
}

// ReadKey unmarshals the stored value for key into out. The boolean reports
// whether the key was present.
func ReadKey(p Provider, key string, out any) (bool, error) {
	vals, err := p.Get(key)
	if err != nil {
		return false, err
	}
	raw, ok := vals[key]
	if !ok || raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// WriteKey marshals v and stores it under key as a one-key batch.
func WriteKey(p Provider, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Set(map[string]json.RawMessage{key: raw})
}
