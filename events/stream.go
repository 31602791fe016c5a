package events

import (
	"bytes"
	"encoding/json"

	"github.com/codewandler/agentrun-go/tool"
)

// StreamEvent is one object decoded from an agent run stream.
type StreamEvent struct {
	Event         Kind            `json:"event"`
	Content       json.RawMessage `json:"content,omitempty"`
	ContentType   string          `json:"content_type,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
	AgentID       string          `json:"agent_id,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	Model         string          `json:"model,omitempty"`
	CreatedAt     int64           `json:"created_at,omitempty"`
	Tools         []tool.Call     `json:"tools,omitempty"`
	ExtraData     *ExtraData      `json:"extra_data,omitempty"`
	Images        []Image         `json:"images,omitempty"`
	Videos        []Video         `json:"videos,omitempty"`
	Audio         []Audio         `json:"audio,omitempty"`
	ResponseAudio *ResponseAudio  `json:"response_audio,omitempty"`
}

// ContentString returns the content when it is a JSON string.
func (e *StreamEvent) ContentString() (string, bool) {
	raw := bytes.TrimSpace(e.Content)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ContentText returns the content as text, serializing non-string values.
func (e *StreamEvent) ContentText() string {
	return rawText(e.Content)
}

type ExtraData struct {
	ReasoningSteps    []ReasoningStepData `json:"reasoning_steps,omitempty"`
	ReasoningMessages []ReasoningMessage  `json:"reasoning_messages,omitempty"`
	References        []ReferenceData     `json:"references,omitempty"`
}

// Clone returns a shallow copy that can be modified without touching e.
func (e *ExtraData) Clone() *ExtraData {
	if e == nil {
		return &ExtraData{}
	}
	c := *e
	return &c
}

type ReasoningStepData struct {
	Title      string   `json:"title"`
	Action     string   `json:"action,omitempty"`
	Result     string   `json:"result"`
	Reasoning  string   `json:"reasoning"`
	Confidence *float64 `json:"confidence,omitempty"`
	NextAction string   `json:"next_action,omitempty"`
}

type ReasoningMessage struct {
	Role          tool.Role      `json:"role"`
	Content       *string        `json:"content"`
	ToolCallID    string         `json:"tool_call_id,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	ToolCallError bool           `json:"tool_call_error,omitempty"`
	Metrics       *tool.Metrics  `json:"metrics,omitempty"`
	CreatedAt     int64          `json:"created_at,omitempty"`
}

// ToolCall converts a tool reasoning message into a tool call, filling the
// gaps the way stored runs expect.
func (m ReasoningMessage) ToolCall(now int64) tool.Call {
	c := tool.Call{
		Role:          m.Role,
		Content:       m.Content,
		ToolCallID:    m.ToolCallID,
		ToolName:      m.ToolName,
		ToolArgs:      m.ToolArgs,
		ToolCallError: m.ToolCallError,
		CreatedAt:     m.CreatedAt,
	}
	if c.ToolArgs == nil {
		c.ToolArgs = map[string]any{}
	}
	if m.Metrics != nil {
		c.Metrics = *m.Metrics
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	return c
}

type ReferenceData struct {
	Query      string      `json:"query"`
	References []Reference `json:"references"`
	Time       *float64    `json:"time,omitempty"`
}

type Reference struct {
	Content  string `json:"content"`
	MetaData struct {
		Chunk     int `json:"chunk"`
		ChunkSize int `json:"chunk_size"`
	} `json:"meta_data"`
	Name string `json:"name"`
}

type Image struct {
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	URL           string `json:"url"`
}

type Video struct {
	ID  int64   `json:"id"`
	ETA float64 `json:"eta"`
	URL string  `json:"url"`
}

type Audio struct {
	Base64Audio string `json:"base64_audio,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	URL         string `json:"url,omitempty"`
	ID          string `json:"id,omitempty"`
	Content     string `json:"content,omitempty"`
	Channels    int    `json:"channels,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
}

// ResponseAudio carries spoken output. Content holds base64 PCM16, the
// transcript grows incrementally like the main text content.
type ResponseAudio struct {
	ID         string `json:"id,omitempty"`
	Content    string `json:"content,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}
