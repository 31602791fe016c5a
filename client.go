package agentrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/codewandler/agentrun-go/audio"
	"github.com/codewandler/agentrun-go/events"
	"github.com/codewandler/agentrun-go/internal/coalesce"
	"github.com/codewandler/agentrun-go/transcript"
)

// Client runs one conversation against an agent. At most one response
// streams at a time.
type Client struct {
	config     *clientConfig
	logger     *slog.Logger
	transcript TranscriptStore
	sessions   SessionStore
	notifier   Notifier
	publisher  *coalesce.Publisher[transcript.Transcript]

	mu        sync.Mutex
	streaming bool
	cancel    context.CancelFunc
	sessionID string
	working   transcript.Transcript
	observers []func(transcript.Transcript)
}

// run tracks a single streamed response.
type run struct {
	title     string
	state     transcript.RunState
	sessionID string
	adopted   bool
}

func New(opts ...Option) *Client {
	config := newConfig(opts...)

	c := &Client{
		config:     config,
		logger:     config.logger,
		transcript: config.transcript,
		sessions:   config.sessions,
		notifier:   config.notifier,
		sessionID:  config.sessionID,
	}
	if c.transcript == nil {
		c.transcript = NewMemoryTranscript()
	}
	if c.notifier == nil {
		c.notifier = logNotifier{logger: c.logger}
	}
	c.working = c.transcript.Messages()
	c.publisher = coalesce.New(config.commitInterval, c.publish)
	return c
}

// Subscribe registers f to be called with every published transcript.
// Observers may read the client (Transcript, Streaming, SessionID) but must not
// call Send, Clear, LoadSession or Close; those publish again and would wait
// on the publication that is running the observer.
func (c *Client) Subscribe(f func(transcript.Transcript)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, f)
}

func (c *Client) publish(t transcript.Transcript) {
	c.transcript.SetMessages(func(transcript.Transcript) transcript.Transcript { return t })

	c.mu.Lock()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()
	for _, o := range observers {
		o(t)
	}
}

// Streaming reports whether a response is in flight.
func (c *Client) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// SessionID returns the active session, empty before the agent assigned one.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Transcript returns the current conversation, including updates that have
// not been published yet.
func (c *Client) Transcript() transcript.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.working
}

// Send posts text to the agent and streams the response into the transcript.
// It returns once the response has ended. While a response is streaming
// further calls fail with ErrBusy without touching the transcript.
func (c *Client) Send(ctx context.Context, text string, files ...File) error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		c.notifier.Error(ErrBusy.Error())
		return ErrBusy
	}
	c.streaming = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	r := &run{title: text, sessionID: c.sessionID}
	c.mu.Unlock()
	defer cancel()

	now := time.Now().Unix()
	user := transcript.NewEntry(transcript.RoleUser, text, now)
	agent := transcript.NewEntry(transcript.RoleAgent, "", now+1)
	c.update(func(t transcript.Transcript) transcript.Transcript {
		return t.DropFailedTurn().Append(user, agent)
	})
	c.publisher.Flush()

	if err := c.config.validate(); err != nil {
		err = fmt.Errorf("invalid config: %w", err)
		c.fail(r, err)
		return err
	}
	if c.config.agentID == "" {
		c.fail(r, ErrNoAgent)
		return ErrNoAgent
	}

	form, err := NewMessageForm(text, c.config.userID, r.sessionID, files...)
	if err != nil {
		c.fail(r, err)
		return err
	}

	c.logger.Debug("sending message",
		slog.String("agent", c.config.agentID),
		slog.String("session", r.sessionID),
		slog.Int("files", len(files)),
	)

	return Stream(runCtx, StreamConfig{
		URL:        RunURL(c.config.baseURL(), c.config.agentID),
		Headers:    c.config.headers,
		Body:       form,
		HTTPClient: c.config.httpClient,
		Logger:     c.logger,
		OnChunk: func(evt *events.StreamEvent) error {
			return c.handleChunk(r, evt)
		},
		OnError: func(err error) {
			c.fail(r, err)
		},
		OnComplete: func() {
			c.complete(r)
		},
	})
}

// Cancel stops the streaming response, if any. The response ends through
// the normal completion path.
func (c *Client) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		c.logger.Debug("cancelling response")
		cancel()
	}
}

// Clear empties the conversation and forgets the session.
func (c *Client) Clear() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
	c.update(func(transcript.Transcript) transcript.Transcript { return nil })
	c.publisher.Flush()
}

// Sessions refreshes the session store from the agent service.
func (c *Client) Sessions(ctx context.Context) ([]SessionEntry, error) {
	sessions, err := c.playground().Sessions(ctx, c.config.agentID, c.config.userID)
	if err != nil {
		return nil, err
	}
	if c.sessions != nil {
		if err := c.sessions.UpdateSessions(func([]SessionEntry) []SessionEntry { return sessions }); err != nil {
			return nil, fmt.Errorf("store sessions: %w", err)
		}
	}
	return sessions, nil
}

// LoadSession replaces the conversation with a stored session and continues
// it.
func (c *Client) LoadSession(ctx context.Context, sessionID string) error {
	if c.Streaming() {
		return ErrBusy
	}
	detail, err := c.playground().Session(ctx, c.config.agentID, sessionID, c.config.userID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	history := detail.Transcript()
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	c.update(func(transcript.Transcript) transcript.Transcript { return history })
	c.publisher.Flush()
	return nil
}

func (c *Client) playground() *Playground {
	return &Playground{config: c.config, logger: c.logger}
}

// update changes the working transcript and schedules its publication.
func (c *Client) update(f func(transcript.Transcript) transcript.Transcript) {
	c.mu.Lock()
	c.working = f(c.working)
	next := c.working
	c.mu.Unlock()
	c.publisher.Set(next)
}

func (c *Client) handleChunk(r *run, evt *events.StreamEvent) error {
	var effect transcript.Effect
	c.update(func(t transcript.Transcript) transcript.Transcript {
		next, eff := transcript.Apply(t, evt, &r.state)
		effect = eff
		return next
	})

	if effect.ErrorMessage != "" {
		c.notifier.Error(effect.ErrorMessage)
	}

	if evt.SessionID != "" && evt.SessionID != r.sessionID {
		c.logger.Debug("session assigned", slog.String("session", evt.SessionID))
		r.sessionID = evt.SessionID
		r.adopted = true
		c.mu.Lock()
		c.sessionID = evt.SessionID
		c.mu.Unlock()
	}

	if c.config.audio != nil && evt.ResponseAudio != nil && evt.ResponseAudio.Content != "" {
		err := c.config.audio.WriteChunk(evt.ResponseAudio)
		if errors.Is(err, audio.ErrBufferFull) {
			c.logger.Warn("response audio dropped", slog.Any("err", err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("buffer response audio: %w", err)
		}
	}
	return nil
}

func (c *Client) fail(r *run, err error) {
	c.update(transcript.Transcript.MarkStreamingError)
	c.notifier.Error(err.Error())
	c.finish(r)
}

func (c *Client) complete(r *run) {
	c.finish(r)

	if !r.adopted || !c.config.storage || c.sessions == nil {
		return
	}
	placeholder := SessionEntry{
		SessionID: r.sessionID,
		Title:     r.title,
		CreatedAt: time.Now().Unix(),
	}
	err := c.sessions.UpdateSessions(func(prev []SessionEntry) []SessionEntry {
		return append([]SessionEntry{placeholder}, prev...)
	})
	if err != nil {
		c.logger.Error("failed to add session", slog.String("session", r.sessionID), slog.Any("err", err))
	}
}

// finish publishes the final transcript and releases the single-flight guard.
func (c *Client) finish(r *run) {
	c.publisher.Flush()

	c.mu.Lock()
	c.streaming = false
	c.cancel = nil
	c.mu.Unlock()

	c.logger.Debug("response finished", slog.String("session", r.sessionID))
}

// IsCancelled reports whether err is the result of Cancel or a cancelled
// context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// Close cancels a streaming response and publishes pending updates.
func (c *Client) Close() {
	c.Cancel()
	c.publisher.Close()
}
