// Package transcript holds the conversation model and the reducer that folds
// stream events into it.
package transcript

import (
	"github.com/codewandler/agentrun-go/events"
	"github.com/codewandler/agentrun-go/tool"
	nanoid "github.com/matoous/go-nanoid/v2"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

type Entry struct {
	ID             string                `json:"id,omitempty"`
	Role           Role                  `json:"role"`
	Content        string                `json:"content"`
	StreamingError bool                  `json:"streamingError,omitempty"`
	CreatedAt      int64                 `json:"created_at"`
	ToolCalls      []tool.Call           `json:"tool_calls,omitempty"`
	ExtraData      *events.ExtraData     `json:"extra_data,omitempty"`
	Images         []events.Image        `json:"images,omitempty"`
	Videos         []events.Video        `json:"videos,omitempty"`
	Audio          []events.Audio        `json:"audio,omitempty"`
	ResponseAudio  *events.ResponseAudio `json:"response_audio,omitempty"`
}

// NewEntry returns an entry with a fresh local id.
func NewEntry(role Role, content string, createdAt int64) Entry {
	id, err := nanoid.New()
	if err != nil {
		panic(err)
	}
	return Entry{
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}

// Transcript is an ordered conversation. Methods never modify the receiver;
// they return a new slice so published snapshots stay stable.
type Transcript []Entry

func (t Transcript) Append(entries ...Entry) Transcript {
	out := make(Transcript, 0, len(t)+len(entries))
	out = append(out, t...)
	return append(out, entries...)
}

func (t Transcript) Last() (Entry, bool) {
	if len(t) == 0 {
		return Entry{}, false
	}
	return t[len(t)-1], true
}

func (t Transcript) withLast(e Entry) Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	out[len(out)-1] = e
	return out
}

// MarkStreamingError flags the last entry if it is an agent entry.
func (t Transcript) MarkStreamingError() Transcript {
	last, ok := t.Last()
	if !ok || last.Role != RoleAgent {
		return t
	}
	last.StreamingError = true
	return t.withLast(last)
}

// DropFailedTurn removes a trailing user/agent pair whose agent entry failed
// to stream, so a retry replaces it instead of stacking up.
func (t Transcript) DropFailedTurn() Transcript {
	n := len(t)
	if n < 2 {
		return t
	}
	if t[n-1].Role == RoleAgent && t[n-1].StreamingError && t[n-2].Role == RoleUser {
		out := make(Transcript, n-2)
		copy(out, t[:n-2])
		return out
	}
	return t
}
