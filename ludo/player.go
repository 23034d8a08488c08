package ludo

import "strconv"

// Player owns a fixed set of units and a short queue of pending dice.
// Dice persist across turns: a fresh player holds DiceCount-1 pending
// values and a roll tops the queue up to DiceCount.
type Player struct {
	Index int    `json:"index"`
	Units []Unit `json:"units"`
	Dice  []int  `json:"dice"`
}

func newPlayer(c Config, index int) Player {
	p := Player{Index: index}
	p.Units = make([]Unit, c.UnitCount)
	for i := range p.Units {
		p.Units[i] = Unit{Index: i, PlayerIndex: index, Area: AreaSpawn}
	}
	p.Dice = make([]int, 0, c.DiceCount)
	for i := 0; i < c.DiceCount-1; i++ {
		p.Dice = append(p.Dice, c.RollMin+i)
	}
	return p
}

// Name is the player's display name: "1".."4".
func (p Player) Name() string { return strconv.Itoa(p.Index + 1) }

// MissingDice reports whether the player still has to roll this segment.
func (p Player) MissingDice(c Config) bool { return len(p.Dice) < c.DiceCount }

// Progress is the fraction of maximum possible track distance covered by
// the player's units.
func (p Player) Progress(c Config) float64 {
	sum := 0
	for _, u := range p.Units {
		sum += u.TrackDistance
	}
	return float64(sum) / float64(c.TrackSize()) / float64(c.UnitCount)
}

func (p Player) anyOnTrack() bool {
	for _, u := range p.Units {
		if u.OnTrack() {
			return true
		}
	}
	return false
}

func (p Player) allFinished() bool {
	for _, u := range p.Units {
		if !u.Finished() {
			return false
		}
	}
	return true
}
