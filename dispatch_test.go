package agentrun

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/codewandler/agentrun-go/events"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func TestDispatchMalformed(t *testing.T) {
	called := false
	err := Dispatch(discard, `{"event":"RunResponse","content":}`, func(*events.StreamEvent) error {
		called = true
		return nil
	})
	require.False(t, called)
	require.ErrorIs(t, err, ErrMalformedChunk)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestDispatchTypeMismatchIsMalformed(t *testing.T) {
	err := Dispatch(discard, `{"event":"RunResponse","created_at":"yesterday"}`, nil)
	require.ErrorIs(t, err, ErrMalformedChunk)
}

func TestDispatchIgnoresPrimitives(t *testing.T) {
	for _, raw := range []string{`42`, `"text"`, `null`, `[1,2]`} {
		err := Dispatch(discard, raw, func(*events.StreamEvent) error {
			t.Fatalf("handler called for %s", raw)
			return nil
		})
		require.NoError(t, err, raw)
	}
}

func TestDispatchCallsHandlerOnce(t *testing.T) {
	var got []*events.StreamEvent
	err := Dispatch(discard, `{"event":"ReasoningStep","content":"thinking"}`, func(evt *events.StreamEvent) error {
		got = append(got, evt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, events.ReasoningStep, got[0].Event)
}

func TestDispatchUnknownKind(t *testing.T) {
	var kind events.Kind
	err := Dispatch(discard, `{"event":"SomethingNew","content":1}`, func(evt *events.StreamEvent) error {
		kind = evt.Event
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, events.Kind("SomethingNew"), kind)
}

func TestDispatchIsolatesHandlerFailures(t *testing.T) {
	boom := errors.New("boom")
	err := Dispatch(discard, `{"event":"RunResponse"}`, func(*events.StreamEvent) error {
		return boom
	})
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	require.ErrorIs(t, err, boom)
	require.Equal(t, events.RunResponse, herr.Event)

	err = Dispatch(discard, `{"event":"RunCompleted"}`, func(*events.StreamEvent) error {
		panic("bad chunk")
	})
	require.ErrorAs(t, err, &herr)
	require.Contains(t, err.Error(), "bad chunk")
}
