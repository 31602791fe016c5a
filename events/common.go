package events

import (
	"bytes"
	"encoding/json"
)

// Kind discriminates the objects sent on an agent run stream.
type Kind string

const (
	RunStarted         Kind = "RunStarted"
	RunResponse        Kind = "RunResponse"
	RunCompleted       Kind = "RunCompleted"
	ToolCallStarted    Kind = "ToolCallStarted"
	ToolCallCompleted  Kind = "ToolCallCompleted"
	UpdatingMemory     Kind = "UpdatingMemory"
	ReasoningStarted   Kind = "ReasoningStarted"
	ReasoningStep      Kind = "ReasoningStep"
	ReasoningCompleted Kind = "ReasoningCompleted"
	RunError           Kind = "RunError"
)

var knownKinds = map[Kind]struct{}{
	RunStarted:         {},
	RunResponse:        {},
	RunCompleted:       {},
	ToolCallStarted:    {},
	ToolCallCompleted:  {},
	UpdatingMemory:     {},
	ReasoningStarted:   {},
	ReasoningStep:      {},
	ReasoningCompleted: {},
	RunError:           {},
}

// Known reports whether k is one of the kinds this package defines.
func (k Kind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

func Parse[T any](data []byte) (*T, error) {
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// rawText turns a raw JSON value into display text: strings verbatim,
// anything else as compact JSON, absent or null as "".
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
