package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/codewandler/agentrun-go"
	"github.com/codewandler/agentrun-go/audio"
	"github.com/codewandler/agentrun-go/store"
	"github.com/codewandler/agentrun-go/transcript"
	"github.com/joho/godotenv"
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var (
		endpoint  = os.Getenv(agentrun.EndpointEnvVarName)
		agentID   = os.Getenv(agentrun.AgentEnvVarName)
		userID    = os.Getenv(agentrun.UserEnvVarName)
		sessionID = ""
		dbPath    = ""
		wavPath   = ""
		storage   = true
		debug     = false
	)

	flag.StringVar(&endpoint, "endpoint", endpoint, "agent service endpoint")
	flag.StringVar(&agentID, "agent", agentID, "agent to talk to")
	flag.StringVar(&userID, "user", userID, "user id sent with every message")
	flag.StringVar(&sessionID, "session", sessionID, "continue an existing session")
	flag.StringVar(&dbPath, "db", dbPath, "keep the session list in this sqlite file")
	flag.StringVar(&wavPath, "wav", wavPath, "write spoken responses to this wav file")
	flag.BoolVar(&storage, "storage", storage, "the agent stores sessions")
	flag.BoolVar(&debug, "debug", debug, "enable debug logs")
	flag.Parse()

	slog.SetLogLoggerLevel(slog.LevelError)
	if debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	var sessions agentrun.SessionStore = store.NewMemory()
	if dbPath != "" {
		db, err := store.NewSQLite(dbPath)
		must(err)
		defer db.Close()
		sessions = db
	}

	opts := []agentrun.Option{
		agentrun.WithDefaultLogger(),
		agentrun.WithEndpoint(endpoint),
		agentrun.WithAgent(agentID),
		agentrun.WithUserID(userID),
		agentrun.WithSessionID(sessionID),
		agentrun.WithStorage(storage),
		agentrun.WithSessionStore(sessions),
		agentrun.WithNotifier(agentrun.NotifierFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, "error>", msg)
		})),
	}

	var recorder *wavRecorder
	if wavPath != "" {
		recorder = newWAVRecorder(audio.DefaultSampleRate)
		opts = append(opts, agentrun.WithResponseAudio(recorder.buf))
	}

	client := agentrun.New(opts...)
	defer client.Close()
	client.Subscribe(newPrinter().print)

	// Ctrl-C stops the running response; a second one with nothing running exits.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		for range interrupts {
			if client.Streaming() {
				client.Cancel()
				continue
			}
			if recorder != nil {
				must(recorder.save(wavPath))
			}
			os.Exit(0)
		}
	}()

	ctx := context.Background()
	lines := bufio.NewScanner(os.Stdin)
	fmt.Print("you> ")
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line != "" {
			run(ctx, client, line)
		}
		fmt.Print("you> ")
	}

	if recorder != nil {
		must(recorder.save(wavPath))
	}
}

func run(ctx context.Context, client *agentrun.Client, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/clear":
		client.Clear()
		fmt.Println("-- cleared --")
	case "/sessions":
		sessions, err := client.Sessions(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error>", err)
			return
		}
		for _, s := range sessions {
			created := time.Unix(s.CreatedAt, 0).Format(time.DateTime)
			fmt.Printf("%s  %s  %s\n", s.SessionID, created, s.Title)
		}
	case "/load":
		if err := client.LoadSession(ctx, strings.TrimSpace(arg)); err != nil {
			fmt.Fprintln(os.Stderr, "error>", err)
		}
	default:
		err := client.Send(ctx, line)
		switch {
		case agentrun.IsCancelled(err):
			fmt.Println("\n-- stopped --")
		case errors.Is(err, agentrun.ErrBusy):
		case err != nil:
			slog.Debug("send failed", slog.Any("err", err))
		}
	}
}

// printer writes the growing agent entry to stdout as it is published.
type printer struct {
	mu      sync.Mutex
	entryID string
	printed string
}

func newPrinter() *printer {
	return &printer{}
}

func (p *printer) print(t transcript.Transcript) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := t.Last()
	if !ok {
		p.entryID, p.printed = "", ""
		return
	}
	if last.Role != transcript.RoleAgent {
		return
	}

	if last.ID != p.entryID {
		if last.Content != "" {
			// A loaded session: replay it.
			for _, e := range t[:len(t)-1] {
				fmt.Printf("%s> %s\n", e.Role, e.Content)
			}
		}
		p.entryID, p.printed = last.ID, ""
		fmt.Print("agent> ")
	}

	if rest, ok := strings.CutPrefix(last.Content, p.printed); ok {
		fmt.Print(rest)
	} else {
		// The final event replaced the streamed text.
		fmt.Print("\nagent> ", last.Content)
	}
	p.printed = last.Content

	for _, c := range last.ToolCalls {
		slog.Debug("tool call", slog.String("tool", c.ToolName), slog.String("result", c.Result()))
	}
	if last.StreamingError {
		fmt.Print(" [failed]")
	}
}

const recordLatency = 100 * time.Millisecond

// wavRecorder drains response audio in the background so the stream never
// blocks on a full buffer.
type wavRecorder struct {
	buf  *audio.Buffer
	pcm  bytes.Buffer
	done chan struct{}
}

func newWAVRecorder(sampleRate int) *wavRecorder {
	r := &wavRecorder{
		buf:  audio.NewBuffer(sampleRate, 10*time.Second),
		done: make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		reader := r.buf.Reader(recordLatency)
		chunk := make([]byte, audio.ChunkSize(sampleRate, recordLatency, 2, 1))
		for {
			n, err := reader.Read(chunk)
			r.pcm.Write(chunk[:n])
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				slog.Error("failed to record audio", slog.Any("err", err))
				return
			}
		}
	}()
	return r
}

func (r *wavRecorder) save(path string) error {
	r.buf.Close()
	<-r.done
	if r.pcm.Len() == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return audio.WriteWAV(f, r.pcm.Bytes(), r.buf.SampleRate(), 1)
}
