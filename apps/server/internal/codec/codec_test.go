package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	for name, want := range map[string]CommandKind{
		"join":                  CommandJoin,
		"leave":                 CommandLeave,
		"roll":                  CommandRoll,
		"move":                  CommandMove,
		"set_bot_play_interval": CommandSetBotPlayInterval,
		"spectate":              CommandSpectate,
		"heartbeat":             CommandHeartbeat,
	} {
		got, err := ParseCommand(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
		assert.Equal(t, name, got.String())
	}
}

func TestParseCommand_UnknownIsTypedError(t *testing.T) {
	_, err := ParseCommand("_user_roll")
	require.Error(t, err)
	var ue UnknownCommandError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, `unknown command "_user_roll"`, err.Error())
}

func TestDecode_ClientEnvelope(t *testing.T) {
	env, err := Decode([]byte(`{"command":"move","payload":{"unit_index":2,"die_index":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "move", env.Command)

	var mv MovePayload
	require.NoError(t, json.Unmarshal(env.Payload, &mv))
	assert.Equal(t, 2, mv.UnitIndex)
	assert.Equal(t, 1, mv.DieIndex)

	_, err = Decode([]byte(`{not json`))
	assert.Error(t, err)
}

func TestServerEnvelopes(t *testing.T) {
	resp := Response(CommandRoll, false, "not your turn")
	data, err := Encode(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"response","command":"roll","ok":false,"message":"not your turn"}`, string(data))

	hb := Heartbeat(7, nil)
	data, err = Encode(hb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat","ok":true,"state_hash":7}`, string(data))

	hb = Heartbeat(7, json.RawMessage(`{"turn":0}`))
	data, err = Encode(hb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat","ok":true,"state_hash":7,"state":{"turn":0}}`, string(data))

	seat := 2
	joined := Joined("m1", &seat)
	data, err = Encode(joined)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"joined","ok":true,"match_id":"m1","seat":2}`, string(data))
}
