package agentrun

import (
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructEndpointURL(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"http://agents.local:7777": "http://agents.local:7777",
		"https://api.example.com":  "https://api.example.com",
		"localhost:7777":           "http://localhost:7777",
		"10.0.0.12:8000":           "http://10.0.0.12:8000",
		"api.example.com":          "https://api.example.com",
		"localhost%3A7777":         "http://localhost:7777",
	}
	for in, want := range cases {
		require.Equal(t, want, ConstructEndpointURL(in), in)
	}
}

func TestRoutes(t *testing.T) {
	base := "http://localhost:7777/"
	require.Equal(t, "http://localhost:7777/v1/playground/status", StatusURL(base))
	require.Equal(t, "http://localhost:7777/v1/playground/agents", AgentsURL(base))
	require.Equal(t, "http://localhost:7777/v1/playground/agents/a1/runs", RunURL(base, "a1"))
	require.Equal(t, "http://localhost:7777/v1/playground/agents/a1/sessions?user_id=u+1", SessionsURL(base, "a1", "u 1"))
	require.Equal(t, "http://localhost:7777/v1/playground/agents/a1/sessions", SessionsURL(base, "a1", ""))
	require.Equal(t, "http://localhost:7777/v1/playground/agents/a1/sessions/s1?user_id=u1", SessionURL(base, "a1", "s1", "u1"))
}

func TestNewMessageForm(t *testing.T) {
	form, err := NewMessageForm("hello", "u1", "s1",
		File{Name: "notes.txt", ContentType: "text/plain", Data: strings.NewReader("some notes")},
		File{Name: "blob.bin", Data: strings.NewReader("\x00\x01")},
	)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(form.ContentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	r := multipart.NewReader(form.Body, params["boundary"])
	values := map[string]string{}
	var files []string
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FileName() != "" {
			require.Equal(t, "files", part.FormName())
			files = append(files, part.FileName()+":"+part.Header.Get("Content-Type"))
			continue
		}
		values[part.FormName()] = string(data)
	}

	require.Equal(t, map[string]string{
		"message":    "hello",
		"user_id":    "u1",
		"session_id": "s1",
		"stream":     "true",
	}, values)
	require.Equal(t, []string{"notes.txt:text/plain", "blob.bin:application/octet-stream"}, files)
}
