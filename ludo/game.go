package ludo

import (
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"

	"ludi-lite/tokenlog"
)

// Game is the turn engine for a single match. All mutation flows through
// Roll and Move; both act on the active player only and leave the state
// untouched when a command is rejected.
//
// The mutex serializes the command surface against snapshot and hash reads
// so overlapping network requests and the bot tick never observe a
// mid-mutation state.
type Game struct {
	cfg Config
	rng *rand.Rand

	mu    sync.Mutex
	state State
}

// NewGame starts a fresh match.
func NewGame(cfg Config) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Game{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(gameSeed(cfg))),
		state: newState(cfg),
	}, nil
}

// Restore rebuilds a match from a persisted snapshot.
func Restore(cfg Config, snapshot []byte) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	st, err := DecodeState(cfg, snapshot)
	if err != nil {
		return nil, err
	}
	return &Game{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(gameSeed(cfg))),
		state: st,
	}, nil
}

func gameSeed(cfg Config) int64 {
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

// Config returns the match rules.
func (g *Game) Config() Config { return g.cfg }

// Roll tops the active player's dice up to DiceCount. It reports false when
// the dice are already full, which enforces one roll per turn segment.
func (g *Game) Roll() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return rollDice(g.cfg, g.rng, &g.state)
}

// Move applies one die to one of the active player's units. It reports
// false on any validation failure, leaving the state untouched.
func (g *Game) Move(unitIndex, dieIndex int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return moveUnit(g.cfg, &g.state, unitIndex, dieIndex)
}

// Snapshot returns a consistent deep copy of the current state.
func (g *Game) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

// Hash fingerprints the current state for the sync protocol.
func (g *Game) Hash() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return StateHash(g.state)
}

// MarshalState serializes the current state in the persisted snapshot
// format. The result round-trips exactly through Restore.
func (g *Game) MarshalState() ([]byte, error) {
	snap := g.Snapshot()
	return json.Marshal(snap)
}

// Winner returns the winning player index, or -1 while the match runs.
func (g *Game) Winner() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Winner == nil {
		return -1
	}
	return *g.state.Winner
}

// ActiveIndex returns the seat whose turn it is.
func (g *Game) ActiveIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.ActiveIndex()
}

// rollDice implements the roll command on a raw state.
func rollDice(c Config, rng *rand.Rand, st *State) bool {
	if st.Winner != nil {
		return false
	}
	p := st.activePlayer()

	// Force-rescue so at least one unit is always movable and at risk
	// before rolling; prevents a stalemate with an empty track.
	if !p.anyOnTrack() {
		for i := range p.Units {
			if p.Units[i].InSpawn() {
				p.Units[i].moveToTrack(0)
				break
			}
		}
	}

	if len(p.Dice) == c.DiceCount {
		return false
	}
	for len(p.Dice) < c.DiceCount {
		value := c.RollMin + rng.Intn(c.RollMax-c.RollMin+1)
		p.Dice = append(p.Dice, value)
		st.appendToken(tokenlog.DieRolled(value))
	}
	sort.Ints(p.Dice)
	return true
}

// moveUnit implements the move command on a raw state.
func moveUnit(c Config, st *State, unitIndex, dieIndex int) bool {
	if st.Winner != nil {
		return false
	}
	p := st.activePlayer()
	if len(p.Dice) < c.DiceCount {
		return false // must roll first
	}
	if unitIndex < 0 || unitIndex >= c.UnitCount {
		return false
	}
	if dieIndex < 0 || dieIndex >= c.DiceCount {
		return false
	}
	unit := &p.Units[unitIndex]
	dieValue := p.Dice[dieIndex]

	switch {
	case unit.Finished():
		return false

	case unit.InSpawn():
		if !c.IsRescueRoll(dieValue) {
			return false
		}
		p.Dice = append(p.Dice[:dieIndex], p.Dice[dieIndex+1:]...)
		unit.moveToTrack(0)
		st.appendToken(tokenlog.UnitSpawned(unit.Name(), dieValue))
		// Spawning never grants an extra turn.
		advanceTurn(st)
		return true
	}

	p.Dice = append(p.Dice[:dieIndex], p.Dice[dieIndex+1:]...)
	unit.TrackDistance += dieValue
	turnEnds := true
	if unit.TrackDistance >= c.TrackSize() {
		unit.moveToFinish(c.TrackSize())
		st.appendToken(tokenlog.UnitFinished(unit.Name(), dieValue))
		if p.allFinished() {
			winner := p.Index
			st.Winner = &winner
			st.markGameOver()
			turnEnds = false
		}
	} else {
		captured := resolveCapture(c, st, *unit)
		if len(captured) > 0 {
			turnEnds = false
			st.appendToken(tokenlog.UnitCaptured(unit.Name(), dieValue, captured))
		} else {
			turnEnds = dieValue != c.RollMax
			st.appendToken(tokenlog.UnitMoved(unit.Name(), dieValue))
		}
	}
	if turnEnds {
		advanceTurn(st)
	}
	return true
}

func advanceTurn(st *State) {
	st.Turn++
	st.Log = append(st.Log, tokenlog.Entry{tokenlog.TurnStarted(st.activePlayer().Name())})
}

// resolveCapture sends every opposing track unit on the mover's position
// back to spawn. Safe positions block capture entirely; friendly overlap is
// legal and has no effect.
func resolveCapture(c Config, st *State, mover Unit) []tokenlog.Victim {
	pos, ok := c.UnitPosition(mover)
	if !ok || c.IsSafePosition(pos) {
		return nil
	}
	var captured []tokenlog.Victim
	for pi := range st.Players {
		enemy := &st.Players[pi]
		if enemy.Index == mover.PlayerIndex {
			continue
		}
		for ui := range enemy.Units {
			enemyUnit := &enemy.Units[ui]
			enemyPos, onTrack := c.UnitPosition(*enemyUnit)
			if !onTrack || enemyPos != pos {
				continue
			}
			enemyUnit.moveToSpawn()
			captured = append(captured, tokenlog.Victim{
				Player: enemy.Name(),
				Unit:   enemyUnit.Name(),
			})
		}
	}
	return captured
}
