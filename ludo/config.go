package ludo

import (
	"fmt"
	"math"
)

// PlayerCount is fixed by the board layout: one quadrant per player.
const PlayerCount = 4

// unitNames indexes unit display names.
const unitNames = "ABCDEFGHIJ"

// Config holds the rules for a single match.
type Config struct {
	BoardSize  int // squares per quadrant
	UnitCount  int // units per player
	DiceCount  int // pending dice a player holds after rolling
	RollMin    int
	RollMax    int
	SafeOffset int // star square offset from each starting square

	// RNG seed (0 => time-based)
	Seed int64
}

// DefaultConfig returns the standard rules: 13 squares per quadrant, four
// units, two dice, d6, star squares 8 past each start.
func DefaultConfig() Config {
	return Config{
		BoardSize:  13,
		UnitCount:  4,
		DiceCount:  2,
		RollMin:    1,
		RollMax:    6,
		SafeOffset: 8,
	}
}

func (c Config) validate() error {
	if c.BoardSize <= 0 {
		return fmt.Errorf("BoardSize must be > 0")
	}
	if c.UnitCount <= 0 || c.UnitCount > len(unitNames) {
		return fmt.Errorf("UnitCount must be in 1..%d", len(unitNames))
	}
	if c.DiceCount <= 0 {
		return fmt.Errorf("DiceCount must be > 0")
	}
	if c.RollMin < 1 || c.RollMax < c.RollMin {
		return fmt.Errorf("invalid roll range: %d..%d", c.RollMin, c.RollMax)
	}
	if c.SafeOffset < 0 || c.SafeOffset >= c.BoardSize {
		return fmt.Errorf("SafeOffset must be in 0..%d", c.BoardSize-1)
	}
	return nil
}

// TrackSize is the full loop length shared by all players.
func (c Config) TrackSize() int { return c.BoardSize * PlayerCount }

// StartingPosition is the absolute board position where a player's units
// enter the track.
func (c Config) StartingPosition(player int) int { return c.BoardSize * player }

// StarPosition is the safe "star" square in a player's quadrant.
func (c Config) StarPosition(player int) int {
	return c.BoardSize*player + c.SafeOffset
}

// IsSafePosition reports whether units on this position are immune to
// capture: all starting squares and all star squares.
func (c Config) IsSafePosition(pos int) bool {
	for i := 0; i < PlayerCount; i++ {
		if pos == c.StartingPosition(i) || pos == c.StarPosition(i) {
			return true
		}
	}
	return false
}

// IsRescueRoll reports whether a die value can bring a unit out of spawn.
func (c Config) IsRescueRoll(value int) bool {
	return value == c.RollMin || value == c.RollMax
}

// TurnOrderHandicap gives players acting later in the round a head start
// worth a fraction of an average roll.
func (c Config) TurnOrderHandicap(player int) int {
	avg := float64(c.RollMin+c.RollMax) / 2
	return int(math.Round(avg * float64(player) / PlayerCount))
}

// UnitPosition derives a unit's absolute board position. ok is false for
// units not on the track, whose position is undefined.
func (c Config) UnitPosition(u Unit) (pos int, ok bool) {
	if !u.OnTrack() {
		return 0, false
	}
	return (c.StartingPosition(u.PlayerIndex) + u.TrackDistance) % c.TrackSize(), true
}

// UnitIsSafe reports whether a unit stands on a safe position.
func (c Config) UnitIsSafe(u Unit) bool {
	pos, ok := c.UnitPosition(u)
	return ok && c.IsSafePosition(pos)
}
