package agentrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/codewandler/agentrun-go/internal/jsonscan"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	readBufferSize    = 4096
	maxErrorBodyBytes = 64 << 10
)

// StreamConfig describes one streamed request. Body is either a *FormBody or
// any value that can be encoded as JSON.
type StreamConfig struct {
	URL        string
	Headers    http.Header
	Body       any
	HTTPClient *http.Client
	Logger     *slog.Logger

	OnChunk    ChunkHandler
	OnError    func(err error)
	OnComplete func()
}

// Stream posts the request and feeds every object of the response stream to
// OnChunk in the order it was received.
//
// Exactly one of OnError and OnComplete is called, exactly once. Cancelling
// ctx ends the stream through OnComplete and makes Stream return ErrCancelled.
// Any other failure is passed to OnError and returned.
func Stream(ctx context.Context, cfg StreamConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			if err == nil || errors.Is(err, ErrCancelled) {
				if cfg.OnComplete != nil {
					cfg.OnComplete()
				}
				return
			}
			if cfg.OnError != nil {
				cfg.OnError(err)
			}
		})
	}

	err := stream(ctx, cfg, logger)
	switch {
	case err == nil:
		logger.Debug("stream complete", slog.String("url", cfg.URL))
	case errors.Is(err, ErrCancelled):
		logger.Debug("stream cancelled", slog.String("url", cfg.URL))
	default:
		logger.Error("stream failed", slog.String("url", cfg.URL), slog.Any("err", err))
	}
	finish(err)
	return err
}

func stream(ctx context.Context, cfg StreamConfig, logger *slog.Logger) error {
	req, err := newStreamRequest(ctx, cfg)
	if err != nil {
		return err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp)
	}

	// The decoder holds back a rune split across reads until the rest arrives.
	body := transform.NewReader(resp.Body, unicode.UTF8.NewDecoder())

	var (
		scanner jsonscan.Scanner
		buf     = make([]byte, readBufferSize)
	)
	dispatch := func(objects []string) {
		for _, obj := range objects {
			_ = Dispatch(logger, obj, cfg.OnChunk)
		}
	}

	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		n, err := body.Read(buf)
		if n > 0 {
			dispatch(scanner.Write(string(buf[:n])))
		}

		if errors.Is(err, io.EOF) {
			dispatch(scanner.Flush())
			if rest := scanner.Remainder(); rest != "" {
				logger.Warn("stream ended with unparsed data", slog.Int("len", len(rest)))
			}
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			return &TransportError{Op: "read", Err: err}
		}
	}
}

func newStreamRequest(ctx context.Context, cfg StreamConfig) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch b := cfg.Body.(type) {
	case nil:
	case *FormBody:
		body = b.Body
		contentType = b.ContentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range cfg.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func newHTTPError(resp *http.Response) *HTTPError {
	herr := &HTTPError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err := json.Unmarshal(data, &herr.Payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if v, ok := herr.Payload[key]; ok && v != nil {
				herr.Message = payloadText(v)
				break
			}
		}
	}
	if herr.Message == "" {
		herr.Message = fmt.Sprintf("unknown error (status %d)", resp.StatusCode)
	}
	return herr
}

func payloadText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
