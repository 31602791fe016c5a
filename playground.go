package agentrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codewandler/agentrun-go/events"
	"github.com/codewandler/agentrun-go/tool"
	"github.com/codewandler/agentrun-go/transcript"
)

type Model struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

type Agent struct {
	AgentID       string   `json:"agent_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Model         Model    `json:"model"`
	Storage       bool     `json:"storage"`
	Profiles      []string `json:"perfiles,omitempty"`
	AudioRealTime bool     `json:"AudioRealTime"`
}

type SessionEntry struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

type SessionDetail struct {
	SessionID string         `json:"session_id"`
	AgentID   string         `json:"agent_id"`
	UserID    *string        `json:"user_id"`
	Memory    SessionMemory  `json:"memory"`
	AgentData map[string]any `json:"agent_data,omitempty"`
}

type SessionMemory struct {
	Runs  []ChatEntry `json:"runs,omitempty"`
	Chats []ChatEntry `json:"chats,omitempty"`
}

// ChatEntry is one stored run: the user message and the agent's response.
type ChatEntry struct {
	Message *struct {
		Role      string          `json:"role"`
		Content   json.RawMessage `json:"content"`
		CreatedAt int64           `json:"created_at"`
	} `json:"message,omitempty"`
	Response *struct {
		Content       json.RawMessage       `json:"content"`
		Tools         []tool.Call           `json:"tools,omitempty"`
		ExtraData     *events.ExtraData     `json:"extra_data,omitempty"`
		Images        []events.Image        `json:"images,omitempty"`
		Videos        []events.Video        `json:"videos,omitempty"`
		Audio         []events.Audio        `json:"audio,omitempty"`
		ResponseAudio *events.ResponseAudio `json:"response_audio,omitempty"`
		CreatedAt     int64                 `json:"created_at"`
	} `json:"response,omitempty"`
}

// Transcript rebuilds the conversation stored in the session.
func (d *SessionDetail) Transcript() transcript.Transcript {
	history := d.Memory.Runs
	if history == nil {
		history = d.Memory.Chats
	}

	now := time.Now().Unix()
	var out transcript.Transcript
	for _, run := range history {
		if m := run.Message; m != nil {
			out = append(out, transcript.NewEntry(transcript.RoleUser, historyText(m.Content), m.CreatedAt))
		}
		if r := run.Response; r != nil {
			e := transcript.NewEntry(transcript.RoleAgent, historyText(r.Content), r.CreatedAt)
			e.ToolCalls = append(e.ToolCalls, r.Tools...)
			if r.ExtraData != nil {
				for _, m := range r.ExtraData.ReasoningMessages {
					if m.Role == tool.RoleTool {
						e.ToolCalls = append(e.ToolCalls, m.ToolCall(now))
					}
				}
			}
			e.ExtraData = r.ExtraData
			e.Images = r.Images
			e.Videos = r.Videos
			e.Audio = r.Audio
			e.ResponseAudio = r.ResponseAudio
			out = append(out, e)
		}
	}
	return out
}

// historyText flattens stored content: strings as is, arrays of parts by
// joining their text parts, other values as JSON.
func historyText(raw json.RawMessage) string {
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil && parts != nil {
		var texts []string
		for _, p := range parts {
			if p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, " ")
	}
	evt := events.StreamEvent{Content: raw}
	return evt.ContentText()
}

// Playground queries the agent service for agents and stored sessions.
type Playground struct {
	config *clientConfig
	logger *slog.Logger
}

func NewPlayground(opts ...Option) *Playground {
	config := newConfig(opts...)
	return &Playground{
		config: config,
		logger: config.logger,
	}
}

// Status returns the HTTP status of the service status endpoint.
func (p *Playground) Status(ctx context.Context) (int, error) {
	resp, err := p.do(ctx, http.MethodGet, StatusURL(p.config.baseURL()))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (p *Playground) Agents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := p.getJSON(ctx, AgentsURL(p.config.baseURL()), &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// Sessions lists the stored sessions of an agent. An unknown agent or user
// has no sessions.
func (p *Playground) Sessions(ctx context.Context, agentID, userID string) ([]SessionEntry, error) {
	var sessions []SessionEntry
	err := p.getJSON(ctx, SessionsURL(p.config.baseURL(), agentID, userID), &sessions)
	var herr *HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
		return []SessionEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (p *Playground) Session(ctx context.Context, agentID, sessionID, userID string) (*SessionDetail, error) {
	var detail SessionDetail
	if err := p.getJSON(ctx, SessionURL(p.config.baseURL(), agentID, sessionID, userID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (p *Playground) DeleteSession(ctx context.Context, agentID, sessionID, userID string) error {
	resp, err := p.do(ctx, http.MethodDelete, SessionURL(p.config.baseURL(), agentID, sessionID, userID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp)
	}
	return nil
}

func (p *Playground) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range p.config.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := p.config.httpClient.Do(req)
	if err != nil {
		p.logger.Error("playground request failed", slog.String("url", url), slog.Any("err", err))
		return nil, &TransportError{Op: method + " " + url, Err: err}
	}
	return resp, nil
}

func (p *Playground) getJSON(ctx context.Context, url string, v any) error {
	resp, err := p.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}
