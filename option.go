package agentrun

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codewandler/agentrun-go/audio"
)

const (
	EndpointEnvVarName = "AGENT_ENDPOINT"
	AgentEnvVarName    = "AGENT_ID"
	UserEnvVarName     = "AGENT_USER_ID"
)

type clientConfig struct {
	endpoint       string
	agentID        string
	userID         string
	sessionID      string
	storage        bool
	commitInterval time.Duration
	headers        http.Header
	httpClient     *http.Client
	logger         *slog.Logger
	transcript     TranscriptStore
	sessions       SessionStore
	notifier       Notifier
	audio          *audio.Buffer
}

func (c *clientConfig) baseURL() string {
	return ConstructEndpointURL(c.endpoint)
}

func (c *clientConfig) validate() error {
	if c.endpoint == "" {
		return fmt.Errorf("missing endpoint")
	}
	return nil
}

type Option func(*clientConfig)

func WithEndpoint(endpoint string) Option {
	return func(o *clientConfig) {
		o.endpoint = endpoint
	}
}

func WithAgent(agentID string) Option {
	return func(o *clientConfig) {
		o.agentID = agentID
	}
}

func WithUserID(userID string) Option {
	return func(o *clientConfig) {
		o.userID = userID
	}
}

// WithSessionID continues an existing session instead of starting a new one.
func WithSessionID(sessionID string) Option {
	return func(o *clientConfig) {
		o.sessionID = sessionID
	}
}

// WithStorage tells the client the agent persists sessions, so new sessions
// are added to the session list.
func WithStorage(enabled bool) Option {
	return func(o *clientConfig) {
		o.storage = enabled
	}
}

// WithCommitInterval bounds how often transcript updates are published while
// a response streams. Zero publishes every update.
func WithCommitInterval(d time.Duration) Option {
	return func(o *clientConfig) {
		o.commitInterval = d
	}
}

func WithHeader(key, value string) Option {
	return func(o *clientConfig) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Add(key, value)
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientConfig) {
		o.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *clientConfig) {
		o.logger = logger
	}
}

func WithDefaultLogger() Option {
	return WithLogger(slog.Default())
}

func WithTranscriptStore(s TranscriptStore) Option {
	return func(o *clientConfig) {
		o.transcript = s
	}
}

func WithSessionStore(s SessionStore) Option {
	return func(o *clientConfig) {
		o.sessions = s
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *clientConfig) {
		o.notifier = n
	}
}

// WithResponseAudio routes spoken response chunks into b.
func WithResponseAudio(b *audio.Buffer) Option {
	return func(o *clientConfig) {
		o.audio = b
	}
}

func withEnv(set func(*clientConfig, string), vars ...string) Option {
	return func(o *clientConfig) {
		for _, name := range vars {
			if v := os.Getenv(name); v != "" {
				set(o, v)
				return
			}
		}
	}
}

func WithEnvEndpoint(vars ...string) Option {
	return withEnv(func(o *clientConfig, v string) { o.endpoint = v }, vars...)
}

func WithEnvAgent(vars ...string) Option {
	return withEnv(func(o *clientConfig, v string) { o.agentID = v }, vars...)
}

func WithEnvUserID(vars ...string) Option {
	return withEnv(func(o *clientConfig, v string) { o.userID = v }, vars...)
}

func WithOptions(opts ...Option) Option {
	return func(o *clientConfig) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

func withDefaults() Option {
	return WithOptions(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithHTTPClient(&http.Client{}),
		WithCommitInterval(50*time.Millisecond),
		WithEnvEndpoint(EndpointEnvVarName),
		WithEnvAgent(AgentEnvVarName),
		WithEnvUserID(UserEnvVarName),
	)
}

func newConfig(opts ...Option) *clientConfig {
	config := &clientConfig{}
	withDefaults()(config)
	WithOptions(opts...)(config)
	return config
}
