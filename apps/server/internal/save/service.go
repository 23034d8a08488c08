// Package save persists game snapshots so matches survive a server restart.
package save

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNotFound reports a match with no persisted snapshot.
var ErrNotFound = errors.New("no saved snapshot")

// Snapshot is one persisted game state.
type Snapshot struct {
	MatchID   string
	State     []byte
	StateHash uint64
	UpdatedAt time.Time
}

// Store persists snapshots keyed by match ID. Save overwrites any previous
// snapshot for the same match.
type Store interface {
	Close() error
	Save(ctx context.Context, matchID string, state []byte, stateHash uint64) error
	Load(ctx context.Context, matchID string) (*Snapshot, error)
	LoadAll(ctx context.Context) ([]*Snapshot, error)
	Delete(ctx context.Context, matchID string) error
}

// NewStore builds a store for the given mode. Mode "memory" keeps
// snapshots in process; "sqlite" and "local" persist to the given path.
func NewStore(mode, dbPath string) (Store, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "memory":
		return newMemoryStore(), "memory", nil
	case "local", "sqlite":
		s, err := NewSQLiteStore(dbPath)
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	default:
		return nil, "", errors.New("unknown save mode: " + mode)
	}
}

type memoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string]*Snapshot)}
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) Save(_ context.Context, matchID string, state []byte, stateHash uint64) error {
	if strings.TrimSpace(matchID) == "" {
		return errors.New("empty match id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[matchID] = &Snapshot{
		MatchID:   matchID,
		State:     append([]byte(nil), state...),
		StateHash: stateHash,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *memoryStore) Load(_ context.Context, matchID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySnapshot(snap), nil
}

func (s *memoryStore) LoadAll(_ context.Context) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, copySnapshot(snap))
	}
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, matchID)
	return nil
}

func copySnapshot(snap *Snapshot) *Snapshot {
	out := *snap
	out.State = append([]byte(nil), snap.State...)
	return &out
}
