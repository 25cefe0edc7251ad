package protocol

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return Base64Prefix + base64.StdEncoding.EncodeToString([]byte(s))
}

func TestParseEnvelope(t *testing.T) {
	msg, err := ParseEnvelope(`{"cluster":"OnOff","command":"write","arguments":"base64:e30=","command_specifier":"on-time"}`)
	require.NoError(t, err)
	assert.Equal(t, "OnOff", msg.Cluster)
	assert.Equal(t, "write", msg.Command)
	assert.Equal(t, "base64:e30=", msg.Arguments)

	spec, ok := msg.Specifier()
	assert.True(t, ok)
	assert.Equal(t, "on-time", spec)
}

func TestParseEnvelopeJSONPrefix(t *testing.T) {
	msg, err := ParseEnvelope(`json:{"cluster":"delay","command":"wait-for-commissionee","arguments":"base64:e30="}`)
	require.NoError(t, err)
	assert.Equal(t, "delay", msg.Cluster)

	_, ok := msg.Specifier()
	assert.False(t, ok)
}

func TestParseEnvelopeNullSpecifier(t *testing.T) {
	msg, err := ParseEnvelope(`{"cluster":"a","command":"b","arguments":"c","command_specifier":null}`)
	require.NoError(t, err)
	_, ok := msg.Specifier()
	assert.False(t, ok)
}

func TestParseEnvelopeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "not valid json"},
		{"empty", ""},
		{"array", `["cluster"]`},
		{"null", `null`},
		{"missing cluster", `{"command":"read","arguments":"base64:e30="}`},
		{"missing arguments", `{"cluster":"onoff","command":"read"}`},
		{"null command", `{"cluster":"onoff","command":null,"arguments":"x"}`},
		{"numeric cluster", `{"cluster":6,"command":"read","arguments":"x"}`},
		{"numeric specifier", `{"cluster":"onoff","command":"write","arguments":"x","command_specifier":1}`},
		{"trailing data", `{"cluster":"onoff","command":"read","arguments":"x"} extra`},
		{"double prefix", `json:json:{"cluster":"onoff","command":"read","arguments":"x"}`},
		{"duplicate cluster", `{"cluster":"onoff","cluster":"delay","command":"read","arguments":"x"}`},
		{"duplicate specifier", `{"cluster":"onoff","command":"write","arguments":"x","command_specifier":"on-time","command_specifier":null}`},
		{"two objects", `{"cluster":"onoff","command":"read","arguments":"x"}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
}

func TestParseEnvelopeKeysMatchExactly(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cluster   string
		specifier string
		hasSpec   bool
	}{
		{
			name:    "differently cased cluster is ignored",
			input:   `{"cluster":"onoff","command":"read","arguments":"x","CLUSTER":"delay"}`,
			cluster: "onoff",
		},
		{
			name:    "only the cased key present",
			input:   `{"Cluster":"delay","cluster":"onoff","command":"read","arguments":"x"}`,
			cluster: "onoff",
		},
		{
			name:    "differently cased specifier is ignored",
			input:   `{"cluster":"onoff","command":"write","arguments":"x","Command_Specifier":5}`,
			cluster: "onoff",
		},
		{
			name:      "exact specifier wins over cased one",
			input:     `{"cluster":"onoff","command":"write","arguments":"x","command_specifier":"on-time","COMMAND_SPECIFIER":"off-wait-time"}`,
			cluster:   "onoff",
			specifier: "on-time",
			hasSpec:   true,
		},
		{
			name:    "repeated unknown key is ignored",
			input:   `{"cluster":"onoff","command":"read","arguments":"x","extra":1,"extra":2}`,
			cluster: "onoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseEnvelope(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.cluster, msg.Cluster)

			spec, ok := msg.Specifier()
			assert.Equal(t, tt.hasSpec, ok)
			assert.Equal(t, tt.specifier, spec)
		})
	}
}

func TestParseEnvelopeMissingCasedKey(t *testing.T) {
	// A key that only matches case-insensitively does not count as present.
	_, err := ParseEnvelope(`{"Cluster":"onoff","command":"read","arguments":"x"}`)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestDecodeArguments(t *testing.T) {
	var args OnOffWriteArgs
	text, err := DecodeArguments(b64(`{"destination-id":"0x12344321","endpoint-id-ignored-for-group-commands":"1","attribute-values":"30","extra":5}`), &args)
	require.NoError(t, err)
	assert.Contains(t, text, `"attribute-values":"30"`)
	assert.Equal(t, OnOffWriteArgs{
		DestinationID:   "0x12344321",
		EndpointID:      "1",
		AttributeValues: "30",
	}, args)
}

func TestDecodeArgumentsMissingEncoding(t *testing.T) {
	var args WaitForCommissioneeArgs
	_, err := DecodeArguments("invalid-not-base64", &args)
	assert.ErrorIs(t, err, ErrMissingEncoding)

	// The tag is case-sensitive.
	_, err = DecodeArguments("BASE64:e30=", &args)
	assert.ErrorIs(t, err, ErrMissingEncoding)
}

func TestDecodeArgumentsBadEncoding(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		stage   EncodingStage
	}{
		{"not base64", "base64:%%%", StageBase64},
		{"missing padding", "base64:e30", StageBase64},
		{"line feed", "base64:eyJub2Rl\nSWQiOiI0MiJ9", StageBase64},
		{"carriage return", "base64:eyJub2Rl\r\nSWQiOiI0MiJ9", StageBase64},
		{"trailing newline", "base64:eyJub2RlSWQiOiI0MiJ9\n", StageBase64},
		{"invalid utf8", Base64Prefix + base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe}), StageUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args WaitForCommissioneeArgs
			_, err := DecodeArguments(tt.payload, &args)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadEncoding)

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.stage, encErr.Stage)
		})
	}
}

func TestDecodeArgumentsBadSchema(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"empty object", `{}`},
		{"wrong key", `{"node":"42"}`},
		{"numeric node id", `{"nodeId":42}`},
		{"null node id", `{"nodeId":null}`},
		{"not an object", `"42"`},
		{"not json", `nodeId=42`},
		{"duplicate node id", `{"nodeId":"1","nodeId":"2"}`},
		{"duplicate with null", `{"nodeId":"1","nodeId":null}`},
		{"only cased key", `{"NodeId":"42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args WaitForCommissioneeArgs
			_, err := DecodeArguments(b64(tt.json), &args)
			assert.ErrorIs(t, err, ErrBadSchema)
		})
	}
}

func TestDecodeArgumentsIgnoresDifferentlyCasedKeys(t *testing.T) {
	var args WaitForCommissioneeArgs
	_, err := DecodeArguments(b64(`{"nodeId":"42","nodeid":7}`), &args)
	require.NoError(t, err)
	assert.Equal(t, "42", args.NodeID)

	var read OnOffReadArgs
	_, err = DecodeArguments(b64(`{"Endpoint-Ids":"9","destination-id":"1","endpoint-ids":"3"}`), &read)
	require.NoError(t, err)
	assert.Equal(t, OnOffReadArgs{DestinationID: "1", EndpointIDs: "3"}, read)
}

func TestDecodeArgumentsEmptyPayload(t *testing.T) {
	// "base64:" alone decodes to empty text, which is not a JSON object.
	var args WaitForCommissioneeArgs
	_, err := DecodeArguments(Base64Prefix, &args)
	assert.ErrorIs(t, err, ErrBadSchema)
}
