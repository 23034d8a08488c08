package ludo

import (
	"encoding/json"
	"fmt"

	"ludi-lite/tokenlog"
)

// State is the full, serializable game state of one match. The turn counter
// is the only source of truth for whose turn it is; the log holds exactly
// one entry per started turn, the last of which grows in place while the
// turn is active.
type State struct {
	Turn    int             `json:"turn"`
	Players []Player        `json:"players"`
	Log     []tokenlog.Entry `json:"log"`
	Winner  *int            `json:"winner"`
}

func newState(c Config) State {
	s := State{Players: make([]Player, PlayerCount)}
	for i := range s.Players {
		s.Players[i] = newPlayer(c, i)
	}
	// Every player opens with one unit on the track, staggered by turn
	// order so later seats are not strictly worse off.
	for i := range s.Players {
		s.Players[i].Units[0].moveToTrack(c.TurnOrderHandicap(i))
	}
	s.Log = append(s.Log, tokenlog.Entry{tokenlog.TurnStarted(s.Players[s.ActiveIndex()].Name())})
	return s
}

// ActiveIndex selects the active player from the turn counter.
func (s State) ActiveIndex() int { return s.Turn % PlayerCount }

func (s *State) activePlayer() *Player { return &s.Players[s.ActiveIndex()] }

// LogStrings renders the turn log in its compact textual form.
func (s State) LogStrings() []string {
	out := make([]string, len(s.Log))
	for i, e := range s.Log {
		out[i] = e.String()
	}
	return out
}

func (s *State) appendToken(token string) {
	last := len(s.Log) - 1
	s.Log[last] = append(s.Log[last], token)
}

// markGameOver attaches the game-over suffix to the entry's last token.
func (s *State) markGameOver() {
	entry := s.Log[len(s.Log)-1]
	entry[len(entry)-1] += tokenlog.SymbolGameOver
}

// Clone returns a deep copy sharing no mutable memory with the receiver.
func (s State) Clone() State {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Units = append([]Unit(nil), p.Units...)
		p.Dice = append([]int(nil), p.Dice...)
		out.Players[i] = p
	}
	out.Log = make([]tokenlog.Entry, len(s.Log))
	for i, e := range s.Log {
		out.Log[i] = append(tokenlog.Entry(nil), e...)
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

// DecodeState parses a persisted snapshot and checks its structural shape
// against the given rules.
func DecodeState(c Config, data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if len(s.Players) != PlayerCount {
		return State{}, fmt.Errorf("decode state: expected %d players, got %d", PlayerCount, len(s.Players))
	}
	for i, p := range s.Players {
		if p.Index != i {
			return State{}, fmt.Errorf("decode state: player %d has index %d", i, p.Index)
		}
		if len(p.Units) != c.UnitCount {
			return State{}, fmt.Errorf("decode state: player %d has %d units, want %d", i, len(p.Units), c.UnitCount)
		}
		if len(p.Dice) > c.DiceCount {
			return State{}, fmt.Errorf("decode state: player %d holds %d dice, max %d", i, len(p.Dice), c.DiceCount)
		}
	}
	if len(s.Log) == 0 {
		return State{}, fmt.Errorf("decode state: empty log")
	}
	return s, nil
}
