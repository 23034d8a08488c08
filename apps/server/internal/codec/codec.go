// Package codec defines the JSON wire envelopes exchanged over the
// websocket gateway and the closed set of commands a client may send.
package codec

import (
	"encoding/json"
	"fmt"
)

// CommandKind is the closed enumeration of client commands. Unknown names
// never dispatch; they resolve to a typed error instead.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandJoin
	CommandLeave
	CommandRoll
	CommandMove
	CommandSetBotPlayInterval
	CommandSpectate
	CommandHeartbeat
)

var commandNames = map[CommandKind]string{
	CommandJoin:               "join",
	CommandLeave:              "leave",
	CommandRoll:               "roll",
	CommandMove:               "move",
	CommandSetBotPlayInterval: "set_bot_play_interval",
	CommandSpectate:           "spectate",
	CommandHeartbeat:          "heartbeat",
}

var commandKinds = func() map[string]CommandKind {
	m := make(map[string]CommandKind, len(commandNames))
	for k, n := range commandNames {
		m[n] = k
	}
	return m
}()

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// UnknownCommandError reports a command name outside the closed set.
type UnknownCommandError string

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", string(e))
}

// ParseCommand resolves a wire command name to its kind.
func ParseCommand(name string) (CommandKind, error) {
	if k, ok := commandKinds[name]; ok {
		return k, nil
	}
	return CommandUnknown, UnknownCommandError(name)
}

// ClientEnvelope is a single client request.
type ClientEnvelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload targets a specific match; empty means quick start.
type JoinPayload struct {
	MatchID string `json:"match_id,omitempty"`
}

// MovePayload selects one unit and one pending die.
type MovePayload struct {
	UnitIndex int `json:"unit_index"`
	DieIndex  int `json:"die_index"`
}

// BotIntervalPayload adjusts the bot play interval, either relatively via
// Delta or absolutely via Interval (both in seconds).
type BotIntervalPayload struct {
	Delta    *float64 `json:"delta,omitempty"`
	Interval *float64 `json:"interval,omitempty"`
}

// HeartbeatPayload carries the client's last-known state hash.
type HeartbeatPayload struct {
	StateHash uint64 `json:"state_hash"`
}

// Server envelope types.
const (
	TypeResponse  = "response"
	TypeHeartbeat = "heartbeat"
	TypeUpdate    = "update"
	TypeJoined    = "joined"
	TypeError     = "error"
)

// ServerEnvelope is a single server response or push.
type ServerEnvelope struct {
	Type      string          `json:"type"`
	Command   string          `json:"command,omitempty"`
	OK        bool            `json:"ok"`
	Message   string          `json:"message,omitempty"`
	MatchID   string          `json:"match_id,omitempty"`
	Seat      *int            `json:"seat,omitempty"`
	StateHash *uint64         `json:"state_hash,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
}

// Response builds a command acknowledgement.
func Response(kind CommandKind, ok bool, message string) ServerEnvelope {
	return ServerEnvelope{
		Type:    TypeResponse,
		Command: kind.String(),
		OK:      ok,
		Message: message,
	}
}

// Heartbeat builds a heartbeat reply: the hash always, the snapshot only
// when the client's hash was stale.
func Heartbeat(hash uint64, state json.RawMessage) ServerEnvelope {
	return ServerEnvelope{
		Type:      TypeHeartbeat,
		OK:        true,
		StateHash: &hash,
		State:     state,
	}
}

// Update nudges clients that the state hash moved; they fetch the snapshot
// through their next heartbeat.
func Update(hash uint64) ServerEnvelope {
	return ServerEnvelope{
		Type:      TypeUpdate,
		OK:        true,
		StateHash: &hash,
	}
}

// Joined acknowledges a join with the assigned seat (nil for spectators).
func Joined(matchID string, seat *int) ServerEnvelope {
	return ServerEnvelope{
		Type:    TypeJoined,
		OK:      true,
		MatchID: matchID,
		Seat:    seat,
	}
}

// Error builds a protocol-level failure envelope.
func Error(message string) ServerEnvelope {
	return ServerEnvelope{Type: TypeError, OK: false, Message: message}
}

// Encode marshals a server envelope for the wire.
func Encode(env ServerEnvelope) ([]byte, error) { return json.Marshal(env) }

// Decode unmarshals a client envelope from the wire.
func Decode(data []byte) (ClientEnvelope, error) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientEnvelope{}, fmt.Errorf("decode client envelope: %w", err)
	}
	return env, nil
}
