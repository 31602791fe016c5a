package agentrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/codewandler/agentrun-go/events"
)

// ChunkHandler receives each decoded stream event.
type ChunkHandler func(evt *events.StreamEvent) error

// Dispatch decodes one extracted chunk and hands it to h.
//
// A chunk that does not parse yields a *ParseError, an error or panic in h a
// *HandlerError. Both are logged and returned; neither affects later chunks.
// A chunk that is valid JSON but not an object is ignored.
func Dispatch(logger *slog.Logger, raw string, h ChunkHandler) (err error) {
	if logger == nil {
		logger = slog.Default()
	}

	data := bytes.TrimSpace([]byte(raw))
	if !json.Valid(data) {
		err = &ParseError{Raw: raw, Err: fmt.Errorf("invalid JSON")}
		logger.Error("failed to parse chunk", slog.Any("err", err), slog.Int("len", len(raw)))
		return err
	}
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	evt, perr := events.Parse[events.StreamEvent](data)
	if perr != nil {
		err = &ParseError{Raw: raw, Err: perr}
		logger.Error("failed to parse chunk", slog.Any("err", err), slog.Int("len", len(raw)))
		return err
	}

	if h == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Event: evt.Event, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("chunk handler panicked", slog.Any("err", err))
		}
	}()

	if herr := h(evt); herr != nil {
		err = &HandlerError{Event: evt.Event, Err: herr}
		logger.Error("chunk handler failed", slog.Any("err", err))
		return err
	}
	return nil
}
