package agentrun

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/codewandler/agentrun-go/transcript"
)

// TranscriptStore holds the transcript observed by the UI.
type TranscriptStore interface {
	Messages() transcript.Transcript
	SetMessages(update func(prev transcript.Transcript) transcript.Transcript)
}

// SessionStore holds the list of sessions shown next to the conversation.
type SessionStore interface {
	Sessions() ([]SessionEntry, error)
	UpdateSessions(update func(prev []SessionEntry) []SessionEntry) error
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Error(msg string)
}

type NotifierFunc func(msg string)

func (f NotifierFunc) Error(msg string) {
	f(msg)
}

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Error(msg string) {
	n.logger.Warn("notification", slog.String("msg", msg))
}

// MemoryTranscript is a TranscriptStore that keeps the transcript in memory
// and calls its observers after every change.
type MemoryTranscript struct {
	mu        sync.RWMutex
	messages  transcript.Transcript
	observers []func(transcript.Transcript)
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{}
}

func (m *MemoryTranscript) Messages() transcript.Transcript {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages
}

func (m *MemoryTranscript) SetMessages(update func(prev transcript.Transcript) transcript.Transcript) {
	m.mu.Lock()
	m.messages = update(m.messages)
	next := m.messages
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o(next)
	}
}

// Subscribe registers f to be called with every new transcript.
func (m *MemoryTranscript) Subscribe(f func(transcript.Transcript)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, f)
}
