// Package chiptool simulates the command set of chip-tool's interactive
// server: it resolves a cluster/command pair, runs the canned handler and
// encodes the chip-tool shaped response.
package chiptool

import (
	"fmt"
	"strings"
)

// Command identifies one supported cluster/command pair.
type Command int

const (
	CommandUnknown Command = iota
	CommandWaitForCommissionee
	CommandOnOffRead
	CommandOnOffWrite
)

func (c Command) String() string {
	switch c {
	case CommandWaitForCommissionee:
		return "delay wait-for-commissionee"
	case CommandOnOffRead:
		return "onoff read"
	case CommandOnOffWrite:
		return "onoff write"
	default:
		return "unknown"
	}
}

// Resolve maps a cluster/command pair to a Command. The cluster is matched
// case-insensitively, the command exactly.
func Resolve(cluster, command string) Command {
	switch strings.ToLower(cluster) {
	case "delay":
		if command == "wait-for-commissionee" {
			return CommandWaitForCommissionee
		}
	case "onoff":
		switch command {
		case "read":
			return CommandOnOffRead
		case "write":
			return CommandOnOffWrite
		}
	}
	return CommandUnknown
}

func unknownCommandMessage(cluster, command string) string {
	return fmt.Sprintf("Unknown command: %s %s", cluster, command)
}
