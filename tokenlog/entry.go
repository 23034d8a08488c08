package tokenlog

import (
	"encoding/json"
	"strings"
)

// Entry is one turn's log: an ordered, growable token list. Tokens are
// appended structurally while the turn is active and rendered to a single
// space-separated string only at serialization time.
type Entry []string

func (e Entry) String() string { return strings.Join(e, " ") }

// Events decodes the entry into its ordered event sequence.
func (e Entry) Events() ([]EventType, error) { return DecodeEntry(e.String()) }

// MarshalJSON renders the entry as its compact string form, which is the
// persisted and wire representation of the log.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = Entry(strings.Fields(s))
	return nil
}
