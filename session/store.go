package session

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// CONTEXT STORE — per-session conversation memory
// ============================================================================
// The store keeps a flat key/value context per session (last place,
// last contractor, last project ID, ...) plus a turn log. Merges are
// additive: a new turn only overwrites the keys it mentions, so asking
// about a year does not forget the municipality.
// ============================================================================

// Context keys written by the extractor.
const (
	KeyMunicipality = "last_municipality"
	KeyProvince     = "last_province"
	KeyRegion       = "last_region"
	KeyIsland       = "last_island"
	KeyLocation     = "last_location"
	KeyContractor   = "last_contractor"
	KeyProjectID    = "last_project_id"
	KeyAction       = "last_action"
	KeyColumn       = "last_column"
	KeyTopN         = "last_top_n"
	KeyYear         = "last_year"
)

// placeKeys are the keys a new place mention supersedes.
var placeKeys = []string{KeyMunicipality, KeyProvince, KeyRegion, KeyIsland, KeyLocation}

// Context is one session's remembered state.
type Context map[string]string

// Clone returns an independent copy.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Turn is one logged question/answer exchange.
type Turn struct {
	Question string
	Answer   string
	Action   string
	At       time.Time
}

// Store persists session context and turn history.
type Store interface {
	// Get returns the session's context; a missing session yields an
	// empty context, not an error.
	Get(ctx context.Context, sessionID string) (Context, error)
	// Merge overwrites only the given keys, keeping the rest.
	Merge(ctx context.Context, sessionID string, updates Context) error
	// Clear removes the given keys, or the whole context when none are
	// named.
	Clear(ctx context.Context, sessionID string, keys ...string) error
	// LogTurn appends one exchange to the session history.
	LogTurn(ctx context.Context, sessionID string, turn Turn) error
	// History returns up to limit most recent turns, newest first.
	History(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	Close() error
}

// ============================================================================
// IN-MEMORY STORE
// ============================================================================

// MemoryStore is a process-local Store. It backs tests and the REPL,
// where persistence across restarts does not matter.
type MemoryStore struct {
	mu       sync.Mutex
	contexts map[string]Context
	turns    map[string][]Turn
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[string]Context),
		turns:    make(map[string][]Turn),
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contexts[sessionID]; ok {
		return c.Clone(), nil
	}
	return Context{}, nil
}

func (m *MemoryStore) Merge(_ context.Context, sessionID string, updates Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[sessionID]
	if !ok {
		c = Context{}
		m.contexts[sessionID] = c
	}
	for k, v := range updates {
		c[k] = v
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(keys) == 0 {
		delete(m.contexts, sessionID)
		return nil
	}
	if c, ok := m.contexts[sessionID]; ok {
		for _, k := range keys {
			delete(c, k)
		}
	}
	return nil
}

func (m *MemoryStore) LogTurn(_ context.Context, sessionID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return nil
}

func (m *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.turns[sessionID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Turn, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
