package bot

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ludi-lite/ludo"
)

func newTestBot(cfg ludo.Config, seed int64) *Bot {
	return New(cfg, seed, zerolog.Nop())
}

func startedGame(t *testing.T, seed int64) *ludo.Game {
	t.Helper()
	cfg := ludo.DefaultConfig()
	cfg.Seed = seed
	g, err := ludo.NewGame(cfg)
	require.NoError(t, err)
	return g
}

func TestPlay_RollsFirstThenMoves(t *testing.T) {
	g := startedGame(t, 21)
	b := newTestBot(g.Config(), 5)

	// First call rolls: dice fill up, no move yet.
	require.NoError(t, b.Play(g))
	snap := g.Snapshot()
	active := snap.ActiveIndex()
	require.Len(t, snap.Players[active].Dice, 2)

	// Second call moves: one die is consumed.
	require.NoError(t, b.Play(g))
	snap = g.Snapshot()
	assert.Len(t, snap.Players[active].Dice, 1)
}

func TestPlay_NeverExhaustsLegalMoves(t *testing.T) {
	g := startedGame(t, 4242)
	b := newTestBot(g.Config(), 99)

	for i := 0; i < 20000; i++ {
		if g.Winner() >= 0 {
			return
		}
		require.NoErrorf(t, b.Play(g), "play %d", i)

		snap := g.Snapshot()
		require.Equalf(t, snap.Turn+1, len(snap.Log), "play %d: log length must track turns started", i)
		for pi, p := range snap.Players {
			for ui, u := range p.Units {
				if u.InSpawn() {
					require.Zerof(t, u.TrackDistance, "play %d: spawn unit %d/%d has distance", i, pi, ui)
				}
			}
		}
	}
}

func TestPlay_DeterministicWithFixedSeeds(t *testing.T) {
	run := func() uint64 {
		g := startedGame(t, 7)
		b := newTestBot(g.Config(), 11)
		for i := 0; i < 500; i++ {
			if g.Winner() >= 0 {
				break
			}
			require.NoError(t, b.Play(g))
		}
		return g.Hash()
	}
	assert.Equal(t, run(), run(), "identical seeds must replay identically")
}

// fourPlayerState builds a bare state for evaluation tests.
func fourPlayerState(cfg ludo.Config) ludo.State {
	s := ludo.State{Players: make([]ludo.Player, ludo.PlayerCount)}
	for i := range s.Players {
		p := ludo.Player{Index: i}
		for u := 0; u < cfg.UnitCount; u++ {
			p.Units = append(p.Units, ludo.Unit{Index: u, PlayerIndex: i, Area: ludo.AreaSpawn})
		}
		p.Dice = []int{1}
		s.Players[i] = p
	}
	return s
}

func TestEvaluate_PrefersFinishedUnits(t *testing.T) {
	cfg := ludo.DefaultConfig()
	b := newTestBot(cfg, 1)

	behind := fourPlayerState(cfg)
	ahead := fourPlayerState(cfg)
	ahead.Players[0].Units[0].Area = ludo.AreaFinish
	ahead.Players[0].Units[0].TrackDistance = cfg.TrackSize()

	assert.Greater(t, b.Evaluate(ahead, 0), b.Evaluate(behind, 0))
}

func TestEvaluate_PenalizesEnemyProgress(t *testing.T) {
	cfg := ludo.DefaultConfig()
	b := newTestBot(cfg, 1)

	quiet := fourPlayerState(cfg)
	threatened := fourPlayerState(cfg)
	threatened.Players[2].Units[0].Area = ludo.AreaTrack
	threatened.Players[2].Units[0].TrackDistance = 30

	assert.Less(t, b.Evaluate(threatened, 0), b.Evaluate(quiet, 0))
}

func TestEvaluate_RewardsSafeSquares(t *testing.T) {
	cfg := ludo.DefaultConfig()
	b := newTestBot(cfg, 1)

	exposed := fourPlayerState(cfg)
	exposed.Players[0].Units[0].Area = ludo.AreaTrack
	exposed.Players[0].Units[0].TrackDistance = cfg.SafeOffset + 1

	safe := fourPlayerState(cfg)
	safe.Players[0].Units[0].Area = ludo.AreaTrack
	safe.Players[0].Units[0].TrackDistance = cfg.SafeOffset // star square

	assert.Greater(t, b.Evaluate(safe, 0), b.Evaluate(exposed, 0))
}

func TestEvaluate_PrefersActingSooner(t *testing.T) {
	cfg := ludo.DefaultConfig()
	b := newTestBot(cfg, 1)

	s := fourPlayerState(cfg)
	// Turn 0: player 0 acts now, player 3 waits longest.
	soon := b.Evaluate(s, 0)
	late := b.Evaluate(s, 1)
	assert.Greater(t, soon, late)
}
