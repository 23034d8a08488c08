// Package lobby is the registry of live matches: quick-start placement,
// restore from saved snapshots, and idle reaping.
package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ludi-lite/apps/server/internal/match"
	"ludi-lite/apps/server/internal/save"
	"ludi-lite/ludo"
)

var ErrMatchNotFound = errors.New("match not found")

// Lobby manages all live matches.
type Lobby struct {
	mu      sync.RWMutex
	matches map[string]*match.Match

	matchCfg  match.Config
	idleTTL   time.Duration
	store     save.Store
	broadcast func(accountID uint64, data []byte)
	log       zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a lobby. broadcastFn delivers push frames to online accounts;
// store may be nil when persistence is disabled.
func New(
	matchCfg match.Config,
	idleTTL time.Duration,
	store save.Store,
	broadcastFn func(accountID uint64, data []byte),
	logger zerolog.Logger,
) *Lobby {
	l := &Lobby{
		matches:   make(map[string]*match.Match),
		matchCfg:  matchCfg,
		idleTTL:   idleTTL,
		store:     store,
		broadcast: broadcastFn,
		log:       logger,
		done:      make(chan struct{}),
	}
	go l.reapLoop()
	return l
}

// RestoreSaved relaunches matches from persisted snapshots. Decided games
// stay in storage but are not relaunched.
func (l *Lobby) RestoreSaved(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	snaps, err := l.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, snap := range snaps {
		g, err := ludo.Restore(l.matchCfg.Rules, snap.State)
		if err != nil {
			l.log.Warn().Err(err).Str("match", snap.MatchID).Msg("skipping corrupt snapshot")
			continue
		}
		if g.Winner() >= 0 {
			continue
		}
		l.matches[snap.MatchID] = match.New(snap.MatchID, l.matchCfg, g, l.store, l.broadcast, l.log)
		l.log.Info().Str("match", snap.MatchID).Msg("restored match from snapshot")
	}
	return nil
}

// QuickStart returns a match with an open seat, creating one if every live
// match is full.
func (l *Lobby) QuickStart(accountID uint64) (*match.Match, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.matches {
		if !m.IsClosed() && !m.Decided() && m.HasOpenSeat() {
			l.log.Info().Uint64("account", accountID).Str("match", m.ID).Msg("quick start into existing match")
			return m, nil
		}
	}

	id := uuid.NewString()
	g, err := ludo.NewGame(l.matchCfg.Rules)
	if err != nil {
		return nil, err
	}
	m := match.New(id, l.matchCfg, g, l.store, l.broadcast, l.log)
	l.matches[id] = m
	l.log.Info().Uint64("account", accountID).Str("match", id).Msg("quick start created match")
	return m, nil
}

// Get returns a match by ID.
func (l *Lobby) Get(matchID string) (*match.Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// List returns the IDs of all live matches.
func (l *Lobby) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.matches))
	for id := range l.matches {
		ids = append(ids, id)
	}
	return ids
}

// reapLoop stops matches nobody has watched for idleTTL. Their snapshots
// stay in storage and can be restored on demand.
func (l *Lobby) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.reap()
		case <-l.done:
			return
		}
	}
}

func (l *Lobby) reap() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, m := range l.matches {
		if m.IsClosed() || m.IsIdleFor(l.idleTTL) {
			m.Stop()
			delete(l.matches, id)
			l.log.Info().Str("match", id).Msg("reaped idle match")
		}
	}
}

// Stop shuts down the lobby and every live match.
func (l *Lobby) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, m := range l.matches {
		m.Stop()
		delete(l.matches, id)
	}
}
