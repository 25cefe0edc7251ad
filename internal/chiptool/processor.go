package chiptool

import (
	"errors"
	"fmt"

	"github.com/estincelle/chip-tool-go/internal/protocol"
	"github.com/rs/zerolog"
)

// UnknownCommandError is returned for a cluster/command pair with no handler.
// Cluster and Command keep the casing the client sent.
type UnknownCommandError struct {
	Cluster string
	Command string
}

func (e *UnknownCommandError) Error() string {
	return unknownCommandMessage(e.Cluster, e.Command)
}

// Processor turns inbound text frames into chip-tool responses. It keeps no
// state between frames.
type Processor struct {
	log         zerolog.Logger
	traceDecode bool
}

// NewProcessor creates a processor that logs through logger. With
// traceDecode set, decoded arguments are logged at info instead of debug.
func NewProcessor(logger zerolog.Logger, traceDecode bool) *Processor {
	return &Processor{log: logger, traceDecode: traceDecode}
}

// Process handles one frame and always returns a response to send back.
func (p *Processor) Process(text string) string {
	msg, err := protocol.ParseEnvelope(text)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to parse command JSON")
		return errorResponse(failureMessage(err))
	}

	ev := p.log.Info().Str("cluster", msg.Cluster).Str("command", msg.Command)
	if spec, ok := msg.Specifier(); ok {
		ev = ev.Str("specifier", spec)
	}
	ev.Msg("Processing command")

	out, err := p.dispatch(msg)
	if err != nil {
		return errorResponse(failureMessage(err))
	}
	return successResponse(out.results, out.message)
}

func (p *Processor) dispatch(msg *protocol.CommandMessage) (outcome, error) {
	cmd := Resolve(msg.Cluster, msg.Command)
	switch cmd {
	case CommandWaitForCommissionee:
		var args protocol.WaitForCommissioneeArgs
		if err := p.decodeArguments(cmd, msg.Arguments, &args); err != nil {
			return outcome{}, err
		}
		p.log.Info().Str("node_id", args.NodeID).Msg("Waiting for commissionee")
		return waitForCommissionee(args), nil

	case CommandOnOffRead:
		var args protocol.OnOffReadArgs
		if err := p.decodeArguments(cmd, msg.Arguments, &args); err != nil {
			return outcome{}, err
		}
		p.log.Info().
			Str("destination", args.DestinationID).
			Str("endpoint", args.EndpointIDs).
			Msg("Reading onoff attribute")
		return readOnOff(args), nil

	case CommandOnOffWrite:
		var args protocol.OnOffWriteArgs
		if err := p.decodeArguments(cmd, msg.Arguments, &args); err != nil {
			return outcome{}, err
		}
		attribute, ok := msg.Specifier()
		if !ok {
			attribute = defaultAttributeName
		}
		p.log.Info().
			Str("attribute", attribute).
			Str("destination", args.DestinationID).
			Str("endpoint", args.EndpointID).
			Str("value", args.AttributeValues).
			Msg("Writing onoff attribute")
		return writeOnOff(args, attribute), nil

	default:
		err := &UnknownCommandError{Cluster: msg.Cluster, Command: msg.Command}
		p.log.Warn().Err(err).Msg("Rejecting command")
		return outcome{}, err
	}
}

func (p *Processor) decodeArguments(cmd Command, payload string, args protocol.Arguments) error {
	text, err := protocol.DecodeArguments(payload, args)
	if err != nil {
		p.log.Error().Err(err).Stringer("command", cmd).Msg("Failed to decode arguments")
		return err
	}

	ev := p.log.Debug()
	if p.traceDecode {
		ev = p.log.Info()
	}
	ev.Stringer("command", cmd).Str("arguments", text).Msg("Decoded arguments")
	return nil
}

// failureMessage is the text embedded in the error response for err.
func failureMessage(err error) string {
	var (
		unknown *UnknownCommandError
		encErr  *protocol.EncodingError
	)
	switch {
	case errors.As(err, &unknown):
		return unknown.Error()
	case errors.Is(err, protocol.ErrInvalidEnvelope):
		return "Invalid JSON format"
	case errors.Is(err, protocol.ErrMissingEncoding):
		return "Arguments must be base64 encoded"
	case errors.As(err, &encErr):
		if encErr.Stage == protocol.StageUTF8 {
			return "Invalid base64 encoding"
		}
		return "Invalid base64 format"
	case errors.Is(err, protocol.ErrBadSchema):
		return "Invalid arguments format"
	default:
		return fmt.Sprintf("Unknown error: %v", err)
	}
}
