// Package match hosts one running game behind an actor loop. All mutation
// of a match's GameState funnels through a single goroutine, so network
// commands and the bot tick can never interleave mid-mutation.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ludi-lite/apps/server/internal/codec"
	"ludi-lite/apps/server/internal/save"
	"ludi-lite/ludo"
	"ludi-lite/ludo/bot"
)

// Config contains per-match settings.
type Config struct {
	Rules              ludo.Config
	BotPlayInterval    time.Duration
	MaxBotPlayInterval time.Duration
	OfflineSeatTTL     time.Duration
}

// DefaultConfig returns the standard match settings.
func DefaultConfig() Config {
	return Config{
		Rules:              ludo.DefaultConfig(),
		BotPlayInterval:    time.Second,
		MaxBotPlayInterval: 10 * time.Second,
		OfflineSeatTTL:     30 * time.Second,
	}
}

// PlayerConn tracks one connected identity at the match.
type PlayerConn struct {
	AccountID uint64
	Nickname  string
	Seat      int // -1 = spectator
	Online    bool
	LastSeen  time.Time
}

// EventType enumerates actor messages.
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventCommand
	EventClose
)

// Event is a message to the match actor.
type Event struct {
	Type      EventType
	AccountID uint64
	Nickname  string
	Kind      codec.CommandKind
	Move      codec.MovePayload
	Interval  codec.BotIntervalPayload
	Response  chan error
}

var (
	ErrMatchClosed = errors.New("match closed")
	ErrGameOver    = errors.New("game is over")
	ErrNotSeated   = errors.New("not seated at this match")
	ErrNotYourTurn = errors.New("not your turn")
	ErrRollFailed  = errors.New("roll failed")
	ErrMoveFailed  = errors.New("move failed")
	ErrNoOpenSeat  = errors.New("no open seat")
)

const noSeat = -1

// Match is a single running game with its actor loop.
type Match struct {
	ID  string
	cfg Config

	mu       sync.RWMutex
	game     *ludo.Game
	bot      *bot.Bot
	players  map[uint64]*PlayerConn
	seats    [ludo.PlayerCount]uint64 // accountID per seat, 0 = bot-controlled
	closed   bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	botInterval time.Duration
	lastBotPlay time.Time
	emptySince  time.Time
	dirty       bool
	finalSaved  bool

	store     save.Store
	broadcast func(accountID uint64, data []byte)
	log       zerolog.Logger
}

// New wraps a game in a match actor and starts its loop.
func New(
	id string,
	cfg Config,
	game *ludo.Game,
	store save.Store,
	broadcastFn func(accountID uint64, data []byte),
	logger zerolog.Logger,
) *Match {
	m := &Match{
		ID:          id,
		cfg:         cfg,
		game:        game,
		bot:         bot.New(game.Config(), cfg.Rules.Seed, logger),
		players:     make(map[uint64]*PlayerConn),
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
		botInterval: clampInterval(cfg.BotPlayInterval, cfg.MaxBotPlayInterval),
		emptySince:  time.Now(),
		store:       store,
		broadcast:   broadcastFn,
		log:         logger.With().Str("match", id).Logger(),
	}
	go m.run()
	m.log.Info().Msg("match created")
	return m
}

func clampInterval(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// run is the actor loop: commands from the events channel, bot play and
// autosave from the ticker.
func (m *Match) run() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case e := <-m.events:
			err := m.handleEvent(e)
			if e.Response != nil {
				e.Response <- err
			}
		case <-ticker.C:
			m.tick()
		case <-m.done:
			m.log.Info().Msg("match actor stopped")
			return
		}
	}
}

// SubmitEvent sends an event to the actor and waits for its result.
func (m *Match) SubmitEvent(e Event) error {
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrMatchClosed
	}

	select {
	case m.events <- e:
	case <-m.done:
		return ErrMatchClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-m.done:
		return ErrMatchClosed
	}
}

func (m *Match) handleEvent(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed && e.Type != EventClose {
		return ErrMatchClosed
	}

	switch e.Type {
	case EventJoin:
		return m.handleJoin(e.AccountID, e.Nickname)
	case EventLeave:
		return m.handleLeave(e.AccountID)
	case EventCommand:
		return m.handleCommand(e)
	case EventClose:
		m.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (m *Match) handleJoin(accountID uint64, nickname string) error {
	now := time.Now()
	if p, ok := m.players[accountID]; ok {
		p.Online = true
		p.LastSeen = now
		p.Nickname = nickname
		return nil
	}
	p := &PlayerConn{
		AccountID: accountID,
		Nickname:  nickname,
		Seat:      noSeat,
		Online:    true,
		LastSeen:  now,
	}
	m.players[accountID] = p
	// Auto-seat at the first open seat; latecomers spectate.
	for seat := 0; seat < ludo.PlayerCount; seat++ {
		if m.seats[seat] == 0 {
			m.seats[seat] = accountID
			p.Seat = seat
			break
		}
	}
	m.updateEmptySinceLocked(now)
	m.log.Info().Uint64("account", accountID).Int("seat", p.Seat).Msg("player joined")
	return nil
}

func (m *Match) handleLeave(accountID uint64) error {
	p := m.players[accountID]
	if p == nil {
		return nil
	}
	p.Online = false
	p.LastSeen = time.Now()
	m.log.Info().Uint64("account", accountID).Msg("player left")
	return nil
}

func (m *Match) handleCommand(e Event) error {
	p := m.players[e.AccountID]
	if p == nil {
		return ErrNotSeated
	}
	// Any command proves the player is connected; this outlives a stale
	// leave from a displaced socket racing a reconnect.
	p.Online = true
	p.LastSeen = time.Now()

	switch e.Kind {
	case codec.CommandRoll:
		if err := m.requireActiveSeatLocked(p); err != nil {
			return err
		}
		if !m.game.Roll() {
			return ErrRollFailed
		}
		m.afterMutationLocked()
		return nil

	case codec.CommandMove:
		if err := m.requireActiveSeatLocked(p); err != nil {
			return err
		}
		if !m.game.Move(e.Move.UnitIndex, e.Move.DieIndex) {
			return ErrMoveFailed
		}
		m.afterMutationLocked()
		return nil

	case codec.CommandSetBotPlayInterval:
		return m.setBotIntervalLocked(e.Interval)

	case codec.CommandSpectate:
		return m.toggleSpectateLocked(p)

	default:
		return codec.UnknownCommandError(e.Kind.String())
	}
}

// requireActiveSeatLocked enforces turn ownership: commands resolve against
// the current active player only.
func (m *Match) requireActiveSeatLocked(p *PlayerConn) error {
	if m.game.Winner() >= 0 {
		return ErrGameOver
	}
	if p.Seat == noSeat {
		return ErrNotSeated
	}
	if p.Seat != m.game.ActiveIndex() {
		return ErrNotYourTurn
	}
	return nil
}

func (m *Match) setBotIntervalLocked(payload codec.BotIntervalPayload) error {
	next := m.botInterval
	switch {
	case payload.Interval != nil:
		next = time.Duration(*payload.Interval * float64(time.Second))
	case payload.Delta != nil:
		next += time.Duration(*payload.Delta * float64(time.Second))
	default:
		return errors.New("missing interval or delta")
	}
	m.botInterval = clampInterval(next, m.cfg.MaxBotPlayInterval)
	m.log.Debug().Dur("interval", m.botInterval).Msg("bot play interval set")
	return nil
}

func (m *Match) toggleSpectateLocked(p *PlayerConn) error {
	if p.Seat != noSeat {
		m.seats[p.Seat] = 0
		p.Seat = noSeat
		m.log.Info().Uint64("account", p.AccountID).Msg("player now spectating")
		return nil
	}
	for seat := 0; seat < ludo.PlayerCount; seat++ {
		if m.seats[seat] == 0 {
			m.seats[seat] = p.AccountID
			p.Seat = seat
			m.log.Info().Uint64("account", p.AccountID).Int("seat", seat).Msg("spectator took seat")
			return nil
		}
	}
	return ErrNoOpenSeat
}

// afterMutationLocked marks the state dirty and nudges connected clients
// so they re-validate through their next heartbeat.
func (m *Match) afterMutationLocked() {
	m.dirty = true
	m.pushUpdateLocked()
}

func (m *Match) pushUpdateLocked() {
	if m.broadcast == nil {
		return
	}
	data, err := codec.Encode(codec.Update(m.game.Hash()))
	if err != nil {
		return
	}
	for id, p := range m.players {
		if p.Online {
			m.broadcast(id, data)
		}
	}
}

func (m *Match) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	now := time.Now()
	m.releaseOfflineSeatsLocked(now)
	m.updateEmptySinceLocked(now)
	m.autosaveLocked()
	m.botPlayLocked(now)
}

// releaseOfflineSeatsLocked vacates seats whose humans have been offline
// past the TTL; the bot takes over a vacated seat.
func (m *Match) releaseOfflineSeatsLocked(now time.Time) {
	for _, p := range m.players {
		if p.Online || p.Seat == noSeat {
			continue
		}
		if now.Sub(p.LastSeen) < m.cfg.OfflineSeatTTL {
			continue
		}
		m.log.Info().Uint64("account", p.AccountID).Int("seat", p.Seat).Msg("released offline seat")
		m.seats[p.Seat] = 0
		p.Seat = noSeat
	}
}

// botPlayLocked advances unattended seats. This is a debounce: the bot acts
// at most once per interval, and only while someone is around to watch.
func (m *Match) botPlayLocked(now time.Time) {
	if m.game.Winner() >= 0 {
		return
	}
	if m.seats[m.game.ActiveIndex()] != 0 {
		return
	}
	if !m.anyHumanOnlineLocked() {
		return
	}
	if now.Sub(m.lastBotPlay) < m.botInterval {
		return
	}
	m.lastBotPlay = now
	if err := m.bot.Play(m.game); err != nil {
		// A search exhaustion with full dice is a rules-engine bug;
		// report loudly and stop the match rather than loop on it.
		m.log.Error().Err(err).Msg("bot failed: rules invariant violated")
		m.stopLocked()
		return
	}
	m.afterMutationLocked()
}

func (m *Match) anyHumanOnlineLocked() bool {
	for _, p := range m.players {
		if p.Online {
			return true
		}
	}
	return false
}

/// autosaveLocked persists the snapshot of matches worth keeping: started
// and not yet decided, plus one final write once a winner is set.
func (m *Match) autosaveLocked() {
	if m.store == nil {
		return
	}
	snap := m.game.Snapshot()
	started := snap.Turn > 0
	decided := snap.Winner != nil
	if !m.dirty || !started {
		return
	}
	if decided && m.finalSaved {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		m.log.Error().Err(err).Msg("autosave marshal failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, m.ID, data, ludo.StateHash(snap)); err != nil {
		m.log.Error().Err(err).Msg("autosave failed")
		return
	}
	m.dirty = false
	if decided {
		m.finalSaved = true
	}
}

func (m *Match) updateEmptySinceLocked(now time.Time) {
	if m.anyHumanOnlineLocked() {
		m.emptySince = time.Time{}
		return
	}
	if m.emptySince.IsZero() {
		m.emptySince = now
	}
}

// Heartbeat answers the sync protocol: the hash always, a full snapshot
// only when the client's hash is stale. Reads go through the engine's own
// lock, so they observe a fully consistent state.
func (m *Match) Heartbeat(accountID uint64, clientHash uint64) (codec.ServerEnvelope, error) {
	m.mu.Lock()
	if p := m.players[accountID]; p != nil {
		p.Online = true
		p.LastSeen = time.Now()
	}
	m.mu.Unlock()

	// One snapshot feeds both the hash and the payload, so the pair can
	// never straddle a concurrent mutation.
	snap := m.game.Snapshot()
	hash := ludo.StateHash(snap)
	if clientHash == hash {
		return codec.Heartbeat(hash, nil), nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return codec.ServerEnvelope{}, err
	}
	return codec.Heartbeat(hash, data), nil
}

// SeatOf returns the seat of an account, or false for spectators and
// strangers.
func (m *Match) SeatOf(accountID uint64) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.players[accountID]
	if p == nil || p.Seat == noSeat {
		return 0, false
	}
	return p.Seat, true
}

// HasOpenSeat reports whether a joining human would get a seat.
func (m *Match) HasOpenSeat() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acct := range m.seats {
		if acct == 0 {
			return true
		}
	}
	return false
}

// Decided reports whether the match has a winner.
func (m *Match) Decided() bool { return m.game.Winner() >= 0 }

// IsIdleFor reports whether no human has been online for at least ttl.
func (m *Match) IsIdleFor(ttl time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return true
	}
	if m.emptySince.IsZero() {
		return false
	}
	return time.Since(m.emptySince) >= ttl
}

func (m *Match) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Stop shuts down the match actor.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Match) stopLocked() {
	m.closed = true
	m.stopOnce.Do(func() {
		close(m.done)
	})
}
