package chiptool

import (
	"fmt"
	"strconv"

	"github.com/estincelle/chip-tool-go/internal/protocol"
)

// OnOff cluster and attribute identifiers.
const (
	onOffClusterID     = 0x0006
	onOffAttributeID   = 0x0000
	onTimeAttributeID  = 0x4001
	offWaitAttributeID = 0x4002
)

const (
	defaultEndpointID    uint16 = 1
	defaultAttributeName        = "unknown"
)

// The simulated device always reports the light as on.
const simulatedOnOffState = true

// outcome is what a handler produces: the results to report and the
// human-readable log line.
type outcome struct {
	results []any
	message string
}

func waitForCommissionee(args protocol.WaitForCommissioneeArgs) outcome {
	return outcome{
		results: []any{},
		message: fmt.Sprintf("Device %s connected successfully", args.NodeID),
	}
}

func readOnOff(args protocol.OnOffReadArgs) outcome {
	return outcome{
		results: []any{
			map[string]any{
				"clusterId":   onOffClusterID,
				"endpointId":  parseEndpointID(args.EndpointIDs),
				"attributeId": onOffAttributeID,
				"value":       simulatedOnOffState,
			},
		},
		message: fmt.Sprintf("Read OnOff attribute from endpoint %s: %s", args.EndpointIDs, onOffLabel(simulatedOnOffState)),
	}
}

// writeOnOff never echoes the written value; a result without an error
// key is the success signal.
func writeOnOff(args protocol.OnOffWriteArgs, attribute string) outcome {
	return outcome{
		results: []any{
			map[string]any{
				"clusterId":   onOffClusterID,
				"endpointId":  parseEndpointID(args.EndpointID),
				"attributeId": onOffAttribute(attribute),
			},
		},
		message: fmt.Sprintf("Write OnOff attribute '%s' to endpoint %s: value=%s", attribute, args.EndpointID, args.AttributeValues),
	}
}

// parseEndpointID reads a decimal uint16, falling back to endpoint 1.
func parseEndpointID(s string) uint16 {
	if len(s) > 1 && s[0] == '+' {
		s = s[1:]
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return defaultEndpointID
	}
	return uint16(n)
}

func onOffAttribute(name string) int {
	switch name {
	case "on-time":
		return onTimeAttributeID
	case "off-wait-time":
		return offWaitAttributeID
	default:
		return 0
	}
}

func onOffLabel(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
