package openai

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	doneSentinel   = "[DONE]"
	maxStreamToken = 1 << 20
)

// StreamError is an error object delivered inside the event stream after
// the response has already started.
type StreamError struct {
	Message string
	Type    string
	Code    string
}

func (e *StreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: stream error (%s/%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("openai: stream error (%s): %s", e.Type, e.Message)
}

// Stream iterates the text deltas of a streamed chat completion.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), maxStreamToken)
	return &Stream{body: body, scanner: sc}
}

// Next blocks until the next chunk arrives and returns its delta text, which
// may be empty for role-only or finish chunks. It returns io.EOF once the
// provider signals completion or the body ends cleanly.
func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	data, err := s.nextEvent()
	if err != nil {
		s.done = errors.Is(err, io.EOF)
		return "", err
	}
	if data == doneSentinel {
		s.done = true
		return "", io.EOF
	}
	if !gjson.Valid(data) {
		return "", fmt.Errorf("openai: decode stream chunk: invalid JSON %q", truncate(data, 128))
	}
	chunk := gjson.Parse(data)
	if err := chunkError(chunk.Get("error")); err != nil {
		return "", err
	}
	return chunk.Get("choices.0.delta.content").String(), nil
}

// chunkError reports an error only for a set error field; compatible
// backends send "error": null on healthy chunks.
func chunkError(e gjson.Result) error {
	switch {
	case e.IsObject():
		return &StreamError{
			Message: e.Get("message").String(),
			Type:    e.Get("type").String(),
			Code:    e.Get("code").String(),
		}
	case e.Type == gjson.String && e.Str != "":
		return &StreamError{Message: e.Str}
	default:
		return nil
	}
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}

// nextEvent returns the joined data lines of the next server-sent event.
// Comments and fields other than data are ignored.
func (s *Stream) nextEvent() (string, error) {
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if len(data) == 0 {
				continue
			}
			return strings.Join(data, "\n"), nil
		}
		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("openai: read stream: %w", err)
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
