// Package tokenlog encodes and decodes the compact textual turn log.
//
// A turn's log entry is a space-separated sequence of symbol-terminated
// tokens. The symbol alone classifies a token, so the log doubles as the
// wire format for turn history and as the source of replay-driven cues.
package tokenlog

import (
	"errors"
	"strconv"
	"strings"
)

// EventType classifies a decoded log token.
type EventType int

const (
	EventTurnStart EventType = iota + 1
	EventDiceRolled
	EventUnitSpawn
	EventUnitFinish
	EventUnitMove
	EventUnitCapture
)

func (t EventType) String() string {
	switch t {
	case EventTurnStart:
		return "turn_start"
	case EventDiceRolled:
		return "dice_rolled"
	case EventUnitSpawn:
		return "unit_spawn"
	case EventUnitFinish:
		return "unit_finish"
	case EventUnitMove:
		return "unit_move"
	case EventUnitCapture:
		return "unit_capture"
	default:
		return "unknown"
	}
}

// Token symbols. GameOver is an entry suffix, not a token of its own.
const (
	symTurnStart  = ":"
	symDiceRolled = "/"
	symSpawn      = "+"
	symFinish     = "!"
	symMove       = "."
	symCapture    = "x"

	SymbolGameOver = "#"
)

// TurnStarted opens a turn's entry, e.g. "2:".
func TurnStarted(player string) string { return player + symTurnStart }

// DieRolled records a single drawn die value, e.g. "5/".
func DieRolled(value int) string { return strconv.Itoa(value) + symDiceRolled }

// UnitSpawned records a rescue from spawn onto the track, e.g. "A6+".
func UnitSpawned(unit string, die int) string { return unit + strconv.Itoa(die) + symSpawn }

// UnitFinished records a unit reaching the end of the track, e.g. "C4!".
func UnitFinished(unit string, die int) string { return unit + strconv.Itoa(die) + symFinish }

// UnitMoved records a plain track move, e.g. "B3.".
func UnitMoved(unit string, die int) string { return unit + strconv.Itoa(die) + symMove }

// Victim identifies one captured unit by player and unit name.
type Victim struct {
	Player string
	Unit   string
}

// UnitCaptured records a capturing move with one or more victims,
// e.g. "A5x2Bx3C".
func UnitCaptured(unit string, die int, victims []Victim) string {
	var b strings.Builder
	b.WriteString(unit)
	b.WriteString(strconv.Itoa(die))
	for _, v := range victims {
		b.WriteString(symCapture)
		b.WriteString(v.Player)
		b.WriteString(v.Unit)
	}
	return b.String()
}

// DecodeError reports a log token that cannot be classified. A malformed
// entry means the log is corrupted or incompatible and must not be
// interpreted further.
type DecodeError struct {
	Word string
}

func (e *DecodeError) Error() string {
	return "tokenlog: cannot classify token " + strconv.Quote(e.Word)
}

// DecodeWord classifies a single token. The game-over suffix is stripped
// first; the remaining checks run in a fixed priority order so tokens that
// embed other symbols (a capture token carries a unit+die prefix) resolve
// unambiguously.
func DecodeWord(word string) (EventType, error) {
	w := strings.TrimSpace(word)
	w = strings.TrimSuffix(w, SymbolGameOver)
	switch {
	case w == "":
		return 0, &DecodeError{Word: word}
	case strings.HasSuffix(w, symTurnStart):
		return EventTurnStart, nil
	case strings.HasSuffix(w, symDiceRolled):
		return EventDiceRolled, nil
	case strings.HasSuffix(w, symMove):
		return EventUnitMove, nil
	case strings.Contains(w, symCapture):
		return EventUnitCapture, nil
	case strings.HasSuffix(w, symSpawn):
		return EventUnitSpawn, nil
	case strings.Contains(w, symFinish):
		return EventUnitFinish, nil
	default:
		return 0, &DecodeError{Word: word}
	}
}

// DecodeEntry decodes a full turn entry into its ordered event sequence.
func DecodeEntry(entry string) ([]EventType, error) {
	words := strings.Fields(entry)
	events := make([]EventType, 0, len(words))
	for _, w := range words {
		et, err := DecodeWord(w)
		if err != nil {
			return nil, err
		}
		events = append(events, et)
	}
	return events, nil
}

// HasGameOver reports whether an entry carries the game-over suffix.
func HasGameOver(entry string) bool {
	return strings.HasSuffix(strings.TrimSpace(entry), SymbolGameOver)
}

var ErrEmptyLog = errors.New("tokenlog: empty log")

// Cue derives the event to cue for the most recent completed action. When
// the last entry has only just opened (a turn boundary was crossed), the
// cue is the previous player's final event instead of the bare turn start.
func Cue(log []string) (EventType, error) {
	if len(log) == 0 {
		return 0, ErrEmptyLog
	}
	events, err := DecodeEntry(log[len(log)-1])
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, &DecodeError{Word: log[len(log)-1]}
	}
	last := events[len(events)-1]
	if last == EventTurnStart && len(log) > 1 {
		prev, err := DecodeEntry(log[len(log)-2])
		if err != nil {
			return 0, err
		}
		if len(prev) == 0 {
			return 0, &DecodeError{Word: log[len(log)-2]}
		}
		return prev[len(prev)-1], nil
	}
	return last, nil
}
