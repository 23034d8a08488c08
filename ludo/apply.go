package ludo

// ApplyMove computes the state that results from applying a move, without
// touching the input state. ok reports whether the move was legal; on an
// illegal move the zero State is returned.
//
// This is the search primitive for move evaluation: candidates are always
// applied to a copy of the same origin state, never cumulatively, and the
// authoritative state is unaffected.
func ApplyMove(c Config, s State, unitIndex, dieIndex int) (next State, ok bool) {
	next = s.Clone()
	if !moveUnit(c, &next, unitIndex, dieIndex) {
		return State{}, false
	}
	return next, true
}
