package ludo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateHash_DeterministicAndFieldSensitive(t *testing.T) {
	cfg := DefaultConfig()
	base := newState(cfg)

	assert.Equal(t, StateHash(base), StateHash(base), "hash must be deterministic")
	assert.Equal(t, StateHash(base), StateHash(base.Clone()), "clone must hash identically")

	mutations := map[string]func(*State){
		"turn":     func(s *State) { s.Turn++ },
		"area":     func(s *State) { s.Players[2].Units[1].Area = AreaTrack },
		"distance": func(s *State) { s.Players[0].Units[0].TrackDistance++ },
		"dice":     func(s *State) { s.Players[3].Dice = append(s.Players[3].Dice, 4) },
		"log":      func(s *State) { s.appendToken("3/") },
		"winner":   func(s *State) { w := 1; s.Winner = &w },
	}
	for name, mutate := range mutations {
		s := base.Clone()
		mutate(&s)
		assert.NotEqual(t, StateHash(base), StateHash(s), "hash must change when %s changes", name)
	}
}

func TestStateJSON_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	g, err := NewGame(cfg)
	require.NoError(t, err)

	// Play a few commands so the snapshot has dice, moves, and log text.
	require.True(t, g.Roll())
	moved := false
	for unit := 0; unit < cfg.UnitCount && !moved; unit++ {
		for die := 0; die < cfg.DiceCount && !moved; die++ {
			moved = g.Move(unit, die)
		}
	}
	require.True(t, moved)

	data, err := g.MarshalState()
	require.NoError(t, err)

	restored, err := DecodeState(cfg, data)
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), restored)
	assert.Equal(t, g.Hash(), StateHash(restored))

	// Round-trip must be byte-stable, including areas and log strings.
	again, err := json.Marshal(restored)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestAreaJSON_Symbolic(t *testing.T) {
	for _, tc := range []struct {
		area Area
		want string
	}{
		{AreaSpawn, `"SPAWN"`},
		{AreaTrack, `"TRACK"`},
		{AreaFinish, `"FINISH"`},
	} {
		data, err := json.Marshal(tc.area)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(data))

		var back Area
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, tc.area, back)
	}

	var bad Area
	assert.Error(t, json.Unmarshal([]byte(`"LIMBO"`), &bad))
}

func TestRestore_RejectsMalformedSnapshots(t *testing.T) {
	cfg := DefaultConfig()
	for name, data := range map[string]string{
		"not json":       `{`,
		"missing player": `{"turn":0,"players":[],"log":["1:"],"winner":null}`,
	} {
		_, err := Restore(cfg, []byte(data))
		assert.Error(t, err, name)
	}
}

func TestApplyMove_NeverMutatesOrigin(t *testing.T) {
	cfg := DefaultConfig()
	origin := newState(cfg)
	origin.Players[0].Dice = []int{1, 6}

	before, err := json.Marshal(origin)
	require.NoError(t, err)

	next, ok := ApplyMove(cfg, origin, 0, 1)
	require.True(t, ok)
	assert.Equal(t, 6, next.Players[0].Units[0].TrackDistance)

	after, err := json.Marshal(origin)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "origin state must be untouched")

	_, ok = ApplyMove(cfg, origin, 1, 0) // spawn unit, die 1 rescues
	assert.True(t, ok)
	_, ok = ApplyMove(cfg, origin, 0, 2) // die index out of range
	assert.False(t, ok)
}
