package transcript

import (
	"strings"

	"github.com/codewandler/agentrun-go/events"
)

// RunState is the per-run memory the reducer needs between events.
type RunState struct {
	// lastContent is the most recent cumulative content seen in a RunResponse.
	lastContent string
}

// Effect reports side effects of applying an event that the caller surfaces.
type Effect struct {
	// ErrorMessage is set for RunError events.
	ErrorMessage string
}

// Apply folds evt into t and returns the resulting transcript. Only the last
// entry is ever replaced, and only when it is an agent entry. Kinds without a
// transcript effect, including unknown ones, return t unchanged.
func Apply(t Transcript, evt *events.StreamEvent, st *RunState) (Transcript, Effect) {
	if evt == nil {
		return t, Effect{}
	}
	if st == nil {
		st = &RunState{}
	}

	switch evt.Event {
	case events.RunResponse:
		return applyResponse(t, evt, st), Effect{}
	case events.RunCompleted:
		return applyCompleted(t, evt), Effect{}
	case events.RunError:
		return t.MarkStreamingError(), Effect{ErrorMessage: evt.ContentText()}
	case events.RunStarted,
		events.ToolCallStarted,
		events.ToolCallCompleted,
		events.UpdatingMemory,
		events.ReasoningStarted,
		events.ReasoningStep,
		events.ReasoningCompleted:
		return t, Effect{}
	default:
		return t, Effect{}
	}
}

func lastAgent(t Transcript) (Entry, bool) {
	last, ok := t.Last()
	if !ok || last.Role != RoleAgent {
		return Entry{}, false
	}
	return last, true
}

func applyResponse(t Transcript, evt *events.StreamEvent, st *RunState) Transcript {
	last, ok := lastAgent(t)
	if !ok {
		return t
	}

	if content, ok := evt.ContentString(); ok {
		// The server resends the accumulated text, so only the part not seen
		// before is appended.
		last.Content += strings.Replace(content, st.lastContent, "", 1)
		st.lastContent = content

		if len(evt.Tools) > 0 {
			last.ToolCalls = append(last.ToolCalls[:0:0], evt.Tools...)
		}
		if evt.ExtraData != nil {
			if evt.ExtraData.ReasoningSteps != nil {
				last.ExtraData = last.ExtraData.Clone()
				last.ExtraData.ReasoningSteps = evt.ExtraData.ReasoningSteps
			}
			if evt.ExtraData.References != nil {
				last.ExtraData = last.ExtraData.Clone()
				last.ExtraData.References = evt.ExtraData.References
			}
		}
		if evt.CreatedAt != 0 {
			last.CreatedAt = evt.CreatedAt
		}
		if evt.Images != nil {
			last.Images = evt.Images
		}
		if evt.Videos != nil {
			last.Videos = evt.Videos
		}
		if evt.Audio != nil {
			last.Audio = evt.Audio
		}
		return t.withLast(last)
	}

	if evt.ResponseAudio != nil && evt.ResponseAudio.Transcript != "" {
		ra := events.ResponseAudio{}
		if last.ResponseAudio != nil {
			ra = *last.ResponseAudio
		}
		ra.Transcript += evt.ResponseAudio.Transcript
		last.ResponseAudio = &ra
		return t.withLast(last)
	}

	return t
}

func applyCompleted(t Transcript, evt *events.StreamEvent) Transcript {
	last, ok := lastAgent(t)
	if !ok {
		return t
	}

	last.Content = evt.ContentText()
	if len(evt.Tools) > 0 {
		last.ToolCalls = append(last.ToolCalls[:0:0], evt.Tools...)
	}
	if evt.Images != nil {
		last.Images = evt.Images
	}
	if evt.Videos != nil {
		last.Videos = evt.Videos
	}
	if evt.ResponseAudio != nil {
		ra := *evt.ResponseAudio
		last.ResponseAudio = &ra
	}
	if evt.CreatedAt != 0 {
		last.CreatedAt = evt.CreatedAt
	}
	if x := evt.ExtraData; x != nil {
		last.ExtraData = last.ExtraData.Clone()
		if x.ReasoningSteps != nil {
			last.ExtraData.ReasoningSteps = x.ReasoningSteps
		}
		if x.ReasoningMessages != nil {
			last.ExtraData.ReasoningMessages = x.ReasoningMessages
		}
		if x.References != nil {
			last.ExtraData.References = x.References
		}
	}
	return t.withLast(last)
}
