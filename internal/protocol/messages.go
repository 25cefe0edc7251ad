package protocol

// Prefixes recognised on inbound frames and argument payloads.
const (
	JSONPrefix   = "json:"
	Base64Prefix = "base64:"
)

const specifierKey = "command_specifier"

// LogModule is the module name chip-tool stamps on every log entry.
const LogModule = "chipTool"

// Log categories carried in LogEntry.Category.
const (
	CategoryInfo  = "Info"
	CategoryError = "Error"
)

// ResultFailure is the value of the "error" key in a failed result.
const ResultFailure = "FAILURE"

// CommandMessage is the envelope sent by a test runner for one command.
type CommandMessage struct {
	Cluster          string  `json:"cluster"`
	Command          string  `json:"command"`
	Arguments        string  `json:"arguments"`
	CommandSpecifier *string `json:"command_specifier"`
}

// Fields lists the envelope keys that must be present as strings.
// command_specifier is optional and read separately.
func (m *CommandMessage) Fields() []Field {
	return []Field{
		{"cluster", &m.Cluster},
		{"command", &m.Command},
		{"arguments", &m.Arguments},
	}
}

// Specifier returns command_specifier and whether it was present and non-null.
func (m *CommandMessage) Specifier() (string, bool) {
	if m.CommandSpecifier == nil {
		return "", false
	}
	return *m.CommandSpecifier, true
}

// WaitForCommissioneeArgs are the decoded arguments of delay wait-for-commissionee.
type WaitForCommissioneeArgs struct {
	NodeID string `json:"nodeId"`
}

func (a *WaitForCommissioneeArgs) Fields() []Field {
	return []Field{{"nodeId", &a.NodeID}}
}

// OnOffReadArgs are the decoded arguments of onoff read.
type OnOffReadArgs struct {
	DestinationID string `json:"destination-id"`
	EndpointIDs   string `json:"endpoint-ids"`
}

func (a *OnOffReadArgs) Fields() []Field {
	return []Field{
		{"destination-id", &a.DestinationID},
		{"endpoint-ids", &a.EndpointIDs},
	}
}

// OnOffWriteArgs are the decoded arguments of onoff write.
type OnOffWriteArgs struct {
	DestinationID   string `json:"destination-id"`
	EndpointID      string `json:"endpoint-id-ignored-for-group-commands"`
	AttributeValues string `json:"attribute-values"`
}

func (a *OnOffWriteArgs) Fields() []Field {
	return []Field{
		{"destination-id", &a.DestinationID},
		{"endpoint-id-ignored-for-group-commands", &a.EndpointID},
		{"attribute-values", &a.AttributeValues},
	}
}

// ResponseMessage is the only response shape; success and failure differ
// only in contents.
type ResponseMessage struct {
	Results []any      `json:"results"`
	Logs    []LogEntry `json:"logs"`
}

// LogEntry is a single log line. Message is always base64 encoded.
type LogEntry struct {
	Module   string `json:"module"`
	Category string `json:"category"`
	Message  string `json:"message"`
}
