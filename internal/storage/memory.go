package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/pkg/engine"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStorage keeps sessions in process memory. Sessions are stored
// encoded so callers never share state with the store.
type MemoryStorage struct {
	worldFiles

	mu        sync.Mutex
	sessions  map[uuid.UUID]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	pingError error
}

// Ensure MemoryStorage implements Storage interface
var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an in-memory storage.
func NewMemoryStorage(dataDir string, ttl time.Duration, logger *slog.Logger) *MemoryStorage {
	if dataDir == "" {
		dataDir = "./data"
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStorage{
		worldFiles: worldFiles{dataDir: dataDir, logger: logger},
		sessions:   make(map[uuid.UUID]memoryEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

// SetPingError makes Ping fail with err. A nil err restores health.
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[uuid.UUID]memoryEntry)
	return nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, id uuid.UUID, s *engine.Session) error {
	if s == nil || s.State == nil {
		return errors.New("session cannot be nil")
	}
	s.State.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)
	m.sessions[id] = memoryEntry{data: data, expires: now.Add(m.ttl)}
	return nil
}

// sweepLocked drops expired sessions. Callers hold m.mu.
func (m *MemoryStorage) sweepLocked(now time.Time) {
	for id, entry := range m.sessions {
		if !now.Before(entry.expires) {
			delete(m.sessions, id)
			m.sessionLog(id).Debug("Session expired")
		}
	}
}

func (m *MemoryStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && !m.now().Before(entry.expires) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		m.sessionLog(id).Debug("Session not found")
		return nil, nil
	}

	var s engine.Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	s.SetLogger(m.sessionLog(id))
	return &s, nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
