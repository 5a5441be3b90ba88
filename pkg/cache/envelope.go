package cache

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Envelope wraps every cached record with the schema version of its
// payload. The version selects the migration chain applied at load time.
type Envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Migration upgrades a payload from one schema version to the next.
type Migration func(data json.RawMessage) (json.RawMessage, error)

// Migrations is a registry mapping a record version to the function that
// upgrades its payload to version+1. Safe for concurrent use.
type Migrations struct {
	mu      sync.RWMutex
	steps   map[int]Migration
	current int
}

// NewMigrations creates a registry whose records are written at the given
// current version.
func NewMigrations(current int) *Migrations {
	return &Migrations{
		steps:   make(map[int]Migration),
		current: current,
	}
}

// Current returns the version new records are sealed with.
func (m *Migrations) Current() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Register adds the migration that upgrades payloads from the given version
// to version+1, replacing any previous registration for that version.
func (m *Migrations) Register(from int, step Migration) {
	if step == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[from] = step
}

// Seal wraps a payload into an envelope at the current version.
func (m *Migrations) Seal(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	return json.Marshal(Envelope{Version: m.Current(), Data: raw})
}

// Open parses a cached record and upgrades its payload to the current
// version by applying registered migrations one step at a time. A version
// newer than current or a gap in the chain yields ErrUnknownVersion so the
// caller can skip the record.
func (m *Migrations) Open(raw []byte) (json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if len(env.Data) == 0 {
		return nil, ErrInvalidEnvelope
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if env.Version > m.current {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, env.Version)
	}

	data := env.Data
	for v := env.Version; v < m.current; v++ {
		step, ok := m.steps[v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from version %d", ErrUnknownVersion, v)
		}
		upgraded, err := step(data)
		if err != nil {
			return nil, fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, v, err)
		}
		data = upgraded
	}
	return data, nil
}
