// Package bot plays a seat automatically using a weighted linear heuristic
// over the states reachable by one move.
package bot

import (
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"ludi-lite/ludo"
)

// ErrNoLegalMove signals a rules-engine invariant violation: a player with
// full dice always has at least one legal move, so an exhausted search must
// be reported loudly, never swallowed.
var ErrNoLegalMove = errors.New("bot: no legal move with full dice")

// Weights for the linear evaluation.
type Weights struct {
	Turn          float64
	Finish        float64
	Safe          float64
	Spawn         float64
	Progress      float64
	EnemyProgress float64
	Dice          float64
}

// DefaultWeights are the tuned values the game ships with.
var DefaultWeights = Weights{
	Turn:          10,
	Finish:        20,
	Safe:          5,
	Spawn:         -5,
	Progress:      20,
	EnemyProgress: -20,
	Dice:          0.5,
}

// Bot evaluates and plays moves for unattended seats. The rng only breaks
// ties among equal-scoring candidates; it never affects correctness.
type Bot struct {
	cfg     ludo.Config
	weights Weights
	rng     *rand.Rand
	log     zerolog.Logger
}

// New creates a bot for a match. Seed 0 draws from the clock; scenario
// tests pass a fixed seed for reproducible tie-breaking.
func New(cfg ludo.Config, seed int64, logger zerolog.Logger) *Bot {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Bot{
		cfg:     cfg,
		weights: DefaultWeights,
		rng:     rand.New(rand.NewSource(seed)),
		log:     logger,
	}
}

type candidate struct {
	unit int
	die  int
}

// Play advances the active seat by exactly one command: a roll when dice
// are pending, otherwise the best-scoring legal move.
func (b *Bot) Play(g *ludo.Game) error {
	if g.Roll() {
		return nil
	}

	origin := g.Snapshot()
	actingPlayer := origin.ActiveIndex()

	candidates := make([]candidate, 0, b.cfg.UnitCount*b.cfg.DiceCount)
	for unit := 0; unit < b.cfg.UnitCount; unit++ {
		for die := 0; die < b.cfg.DiceCount; die++ {
			candidates = append(candidates, candidate{unit: unit, die: die})
		}
	}
	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	best := candidate{}
	bestScore := 0.0
	found := false
	for _, cand := range candidates {
		// Each candidate applies to a copy of the same origin state;
		// moves are never evaluated cumulatively.
		next, ok := ludo.ApplyMove(b.cfg, origin, cand.unit, cand.die)
		if !ok {
			continue
		}
		score := b.Evaluate(next, actingPlayer)
		if !found || score > bestScore {
			best = cand
			bestScore = score
			found = true
		}
	}
	if !found {
		return ErrNoLegalMove
	}
	if !g.Move(best.unit, best.die) {
		return ErrNoLegalMove
	}
	return nil
}

// Evaluate scores a state from a player's perspective. Higher is better.
func (b *Bot) Evaluate(s ludo.State, playerIndex int) float64 {
	c := b.cfg
	player := s.Players[playerIndex]

	turnsAway := ((playerIndex - s.ActiveIndex()) % ludo.PlayerCount + ludo.PlayerCount) % ludo.PlayerCount
	turnScore := float64(ludo.PlayerCount-turnsAway-1) / ludo.PlayerCount

	finished, spawning, safe := 0, 0, 0
	for _, u := range player.Units {
		switch {
		case u.Finished():
			finished++
		case u.InSpawn():
			spawning++
		case c.UnitIsSafe(u):
			safe++
		}
	}
	finishScore := float64(finished) / float64(c.UnitCount)
	spawnScore := float64(spawning) / float64(c.UnitCount)
	safeScore := float64(safe) / float64(c.UnitCount)

	progress := player.Progress(c)
	enemyProgress := 0.0
	for _, p := range s.Players {
		if p.Index == playerIndex {
			continue
		}
		enemyProgress += p.Progress(c)
	}
	enemyProgress /= float64(ludo.PlayerCount - 1)

	diceScore := 0.0
	if c.DiceCount > 1 {
		sum := 0
		for _, v := range player.Dice {
			sum += v
		}
		diceValue := float64(sum) / float64(c.DiceCount-1)
		diceScore = (diceValue - float64(c.RollMin)) / float64(c.RollMax-c.RollMin)
	}

	total := turnScore*b.weights.Turn +
		finishScore*b.weights.Finish +
		safeScore*b.weights.Safe +
		spawnScore*b.weights.Spawn +
		progress*b.weights.Progress +
		enemyProgress*b.weights.EnemyProgress +
		diceScore*b.weights.Dice

	b.log.Debug().
		Int("player", playerIndex).
		Int("turn", s.Turn).
		Int("turns_away", turnsAway).
		Int("finished", finished).
		Int("spawning", spawning).
		Int("safe", safe).
		Float64("progress", progress).
		Float64("enemy_progress", enemyProgress).
		Float64("dice", diceScore).
		Float64("total", total).
		Msg("bot evaluation")
	return total
}
