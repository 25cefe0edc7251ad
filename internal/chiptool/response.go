package chiptool

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/estincelle/chip-tool-go/internal/protocol"
)

// Literal responses used when a response cannot be serialized. Writing one
// of these keeps the connection alive.
const (
	fallbackEmptyResponse  = `{"results":[],"logs":[{"module":"chipTool","category":"Error","message":"RmFpbGVkIHRvIHNlcmlhbGl6ZSByZXNwb25zZQ=="}]}`
	fallbackResultResponse = `{"results":[{"error":"FAILURE"}],"logs":[{"module":"chipTool","category":"Error","message":"RmFpbGVkIHRvIHNlcmlhbGl6ZSByZXNwb25zZQ=="}]}`
	fallbackErrorResponse  = `{"results":[{"error":"FAILURE"}],"logs":[{"module":"chipTool","category":"Error","message":"VW5rbm93biBlcnJvcg=="}]}`
)

func successResponse(results []any, message string) string {
	fallback := fallbackResultResponse
	if len(results) == 0 {
		fallback = fallbackEmptyResponse
	}
	return encodeResponse(newResponse(results, protocol.CategoryInfo, message), fallback)
}

func errorResponse(message string) string {
	results := []any{map[string]any{"error": protocol.ResultFailure}}
	return encodeResponse(newResponse(results, protocol.CategoryError, message), fallbackErrorResponse)
}

func newResponse(results []any, category, message string) protocol.ResponseMessage {
	if results == nil {
		results = []any{}
	}
	return protocol.ResponseMessage{
		Results: results,
		Logs: []protocol.LogEntry{{
			Module:   protocol.LogModule,
			Category: category,
			Message:  base64.StdEncoding.EncodeToString([]byte(message)),
		}},
	}
}

// encodeResponse serializes resp as compact JSON, returning fallback if
// that fails.
func encodeResponse(resp protocol.ResponseMessage, fallback string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return fallback
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
