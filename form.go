package agentrun

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// File is an attachment sent along with a message.
type File struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// FormBody is a ready-to-send multipart request body.
type FormBody struct {
	ContentType string
	Body        *bytes.Buffer
}

// NewMessageForm builds the multipart body of a streamed run request.
func NewMessageForm(message, userID, sessionID string, files ...File) (*FormBody, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"message", message},
		{"user_id", userID},
		{"session_id", sessionID},
		{"stream", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create part for %s: %w", f.Name, err)
		}
		if f.Data == nil {
			continue
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	return &FormBody{
		ContentType: w.FormDataContentType(),
		Body:        buf,
	}, nil
}
