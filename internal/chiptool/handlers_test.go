package chiptool

import (
	"testing"

	"github.com/estincelle/chip-tool-go/internal/protocol"
	"github.com/stretchr/testify/assert"
)

func TestParseEndpointID(t *testing.T) {
	tests := []struct {
		input string
		want  uint16
	}{
		{"3", 3},
		{"0", 0},
		{"65535", 65535},
		{"+7", 7},
		{"65536", 1},
		{"-1", 1},
		{"", 1},
		{"+", 1},
		{"++7", 1},
		{" 3", 1},
		{"0x03", 1},
		{"1,2", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseEndpointID(tt.input), "input %q", tt.input)
	}
}

func TestOnOffAttribute(t *testing.T) {
	assert.Equal(t, 16385, onOffAttribute("on-time"))
	assert.Equal(t, 16386, onOffAttribute("off-wait-time"))
	assert.Equal(t, 0, onOffAttribute("on-off"))
	assert.Equal(t, 0, onOffAttribute("ON-TIME"))
	assert.Equal(t, 0, onOffAttribute(defaultAttributeName))
}

func TestWriteOnOffOmitsValue(t *testing.T) {
	out := writeOnOff(protocol.OnOffWriteArgs{
		DestinationID:   "0x12344321",
		EndpointID:      "2",
		AttributeValues: "30",
	}, "off-wait-time")

	assert.Equal(t, []any{map[string]any{
		"clusterId":   onOffClusterID,
		"endpointId":  uint16(2),
		"attributeId": 16386,
	}}, out.results)
	assert.Equal(t, "Write OnOff attribute 'off-wait-time' to endpoint 2: value=30", out.message)
}

func TestOnOffLabel(t *testing.T) {
	assert.Equal(t, "ON", onOffLabel(true))
	assert.Equal(t, "OFF", onOffLabel(false))
}
