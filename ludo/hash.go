package ludo

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// StateHash fingerprints every field that affects gameplay: the turn
// counter, each unit's area and distance, each player's pending dice, the
// rendered turn log, and the winner. Identical field values always hash
// identically, so clients can use the hash for cache validation.
func StateHash(s State) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		_, _ = d.Write(buf[:])
	}

	writeInt(s.Turn)
	writeInt(len(s.Players))
	for _, p := range s.Players {
		writeInt(p.Index)
		writeInt(len(p.Units))
		for _, u := range p.Units {
			writeInt(int(u.Area))
			writeInt(u.TrackDistance)
		}
		writeInt(len(p.Dice))
		for _, v := range p.Dice {
			writeInt(v)
		}
	}
	writeInt(len(s.Log))
	for _, e := range s.Log {
		_, _ = d.WriteString(e.String())
		_, _ = d.Write([]byte{0})
	}
	if s.Winner == nil {
		writeInt(-1)
	} else {
		writeInt(*s.Winner)
	}
	return d.Sum64()
}
