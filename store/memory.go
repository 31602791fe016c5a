// Package store keeps the session list of a conversation client.
package store

import (
	"slices"
	"sync"

	"github.com/codewandler/agentrun-go"
)

// Memory keeps sessions for the lifetime of the process.
type Memory struct {
	mu       sync.Mutex
	sessions []agentrun.SessionEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Sessions() ([]agentrun.SessionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions), nil
}

func (m *Memory) UpdateSessions(update func(prev []agentrun.SessionEntry) []agentrun.SessionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = dedupe(update(slices.Clone(m.sessions)))
	return nil
}

// dedupe keeps the first entry of every session id.
func dedupe(sessions []agentrun.SessionEntry) []agentrun.SessionEntry {
	seen := make(map[string]struct{}, len(sessions))
	out := make([]agentrun.SessionEntry, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := seen[s.SessionID]; ok {
			continue
		}
		seen[s.SessionID] = struct{}{}
		out = append(out, s)
	}
	return out
}
