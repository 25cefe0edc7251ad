package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidEnvelope means the outer command JSON was malformed or lacked
	// a required field.
	ErrInvalidEnvelope = errors.New("invalid envelope")
	// ErrMissingEncoding means the arguments payload lacked the base64: tag.
	ErrMissingEncoding = errors.New("arguments missing 'base64:' prefix")
	// ErrBadEncoding means the arguments payload did not decode to UTF-8 text.
	ErrBadEncoding = errors.New("invalid argument encoding")
	// ErrBadSchema means the decoded arguments did not match the command.
	ErrBadSchema = errors.New("invalid arguments")
)

// EncodingStage tells which step of argument decoding failed.
type EncodingStage int

const (
	StageBase64 EncodingStage = iota
	StageUTF8
)

func (s EncodingStage) String() string {
	switch s {
	case StageBase64:
		return "base64"
	case StageUTF8:
		return "utf8"
	default:
		return "unknown"
	}
}

// EncodingError reports a base64 or UTF-8 failure. It matches ErrBadEncoding.
type EncodingError struct {
	Stage EncodingStage
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrBadEncoding, e.Stage, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrBadEncoding }

// Field binds one required JSON key to the string it fills.
type Field struct {
	Name string
	Dest *string
}

// Arguments is a record decoded from JSON whose listed fields must all be
// present as JSON strings. Keys match exactly; other keys are ignored.
type Arguments interface {
	Fields() []Field
}

var argumentEncoding = base64.StdEncoding.Strict()

// ParseEnvelope decodes one inbound text frame. A leading "json:" tag is
// stripped when present.
func ParseEnvelope(raw string) (*CommandMessage, error) {
	body := strings.TrimPrefix(raw, JSONPrefix)

	var msg CommandMessage
	obj, err := decodeRecord([]byte(body), &msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	spec, err := obj.optionalString(specifierKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	msg.CommandSpecifier = spec
	return &msg, nil
}

// DecodeArguments unwraps a "base64:<data>" payload into args and returns
// the decoded JSON text.
func DecodeArguments(payload string, args Arguments) (string, error) {
	data, ok := strings.CutPrefix(payload, Base64Prefix)
	if !ok {
		return "", ErrMissingEncoding
	}

	// The decoder skips CR and LF even in strict mode.
	if strings.ContainsAny(data, "\r\n") {
		return "", &EncodingError{Stage: StageBase64, Err: errors.New("line breaks are not allowed")}
	}
	decoded, err := argumentEncoding.DecodeString(data)
	if err != nil {
		return "", &EncodingError{Stage: StageBase64, Err: err}
	}
	if !utf8.Valid(decoded) {
		return "", &EncodingError{Stage: StageUTF8, Err: errors.New("decoded bytes are not valid UTF-8")}
	}

	text := string(decoded)
	if _, err := decodeRecord(decoded, args); err != nil {
		return text, fmt.Errorf("%w: %v", ErrBadSchema, err)
	}
	return text, nil
}

// object is a decoded JSON object keyed by exact member name. Keys seen
// more than once are kept in repeated.
type object struct {
	members  map[string]json.RawMessage
	repeated map[string]bool
}

func decodeRecord(data []byte, rec Arguments) (*object, error) {
	obj, err := readObject(data)
	if err != nil {
		return nil, err
	}
	for _, f := range rec.Fields() {
		s, err := obj.requiredString(f.Name)
		if err != nil {
			return nil, err
		}
		*f.Dest = s
	}
	return obj, nil
}

// readObject walks data as exactly one JSON object.
func readObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	obj := &object{
		members:  make(map[string]json.RawMessage),
		repeated: make(map[string]bool),
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if _, seen := obj.members[key]; seen {
			obj.repeated[key] = true
		}
		obj.members[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return obj, nil
}

func (o *object) member(name string) (json.RawMessage, bool, error) {
	if o.repeated[name] {
		return nil, false, fmt.Errorf("duplicate field %q", name)
	}
	raw, ok := o.members[name]
	return bytes.TrimSpace(raw), ok, nil
}

func (o *object) requiredString(name string) (string, error) {
	raw, ok, err := o.member(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing field %q", name)
	}
	if len(raw) == 0 || raw[0] != '"' {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// optionalString treats an absent key and null alike.
func (o *object) optionalString(name string) (*string, error) {
	raw, ok, err := o.member(name)
	if err != nil {
		return nil, err
	}
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] != '"' {
		return nil, fmt.Errorf("field %q must be a string or null", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
