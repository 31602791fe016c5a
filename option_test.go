package agentrun

import (
	"testing"
	"time"

	"github.com/codewandler/agentrun-go/transcript"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv(EndpointEnvVarName, "localhost:7777")
	t.Setenv(AgentEnvVarName, "env-agent")
	t.Setenv(UserEnvVarName, "env-user")

	config := newConfig()
	require.Equal(t, "http://localhost:7777", config.baseURL())
	require.Equal(t, "env-agent", config.agentID)
	require.Equal(t, "env-user", config.userID)
	require.Equal(t, 50*time.Millisecond, config.commitInterval)
	require.NotNil(t, config.logger)
	require.NotNil(t, config.httpClient)

	config = newConfig(WithAgent("explicit"), WithEnvUserID("MISSING_USER_VAR", UserEnvVarName))
	require.Equal(t, "explicit", config.agentID)
	require.Equal(t, "env-user", config.userID)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv(EndpointEnvVarName, "")
	require.Error(t, newConfig().validate())
	require.NoError(t, newConfig(WithEndpoint("agents.example.com")).validate())
}

func TestWithHeaderAccumulates(t *testing.T) {
	config := newConfig(WithHeader("X-Trace", "a"), WithHeader("X-Trace", "b"))
	require.Equal(t, []string{"a", "b"}, config.headers.Values("X-Trace"))
}

func TestNewClientStartsFromOptions(t *testing.T) {
	store := NewMemoryTranscript()
	store.SetMessages(func(transcript.Transcript) transcript.Transcript {
		return transcript.Transcript{transcript.NewEntry(transcript.RoleUser, "earlier", 1)}
	})

	c := New(WithSessionID("s5"), WithTranscriptStore(store))
	defer c.Close()
	require.Equal(t, "s5", c.SessionID())
	require.Len(t, c.Transcript(), 1)
}

func TestMemoryTranscriptNotifiesObservers(t *testing.T) {
	store := NewMemoryTranscript()
	var seen []int
	store.Subscribe(func(t transcript.Transcript) { seen = append(seen, len(t)) })

	store.SetMessages(func(prev transcript.Transcript) transcript.Transcript {
		return prev.Append(transcript.NewEntry(transcript.RoleUser, "a", 1))
	})
	store.SetMessages(func(prev transcript.Transcript) transcript.Transcript {
		return prev.Append(transcript.NewEntry(transcript.RoleAgent, "b", 2))
	})
	require.Equal(t, []int{1, 2}, seen)
	require.Len(t, store.Messages(), 2)
}
