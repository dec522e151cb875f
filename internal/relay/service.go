// Package relay forwards a conversation to the completion service and streams
// the generated text back as raw bytes.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"bootcamp-tutor/internal/integrations/openai"
)

// Completer opens a streamed completion for messages.
type Completer interface {
	StreamChat(ctx context.Context, model string, messages []json.RawMessage) (FragmentStream, error)
}

// StreamInput is one relay request.
type StreamInput struct {
	Body          []byte
	CorrelationID string
}

// Service relays one request at a time per call; it holds no per-request
// state and is safe for concurrent use.
type Service struct {
	completer    Completer
	model        string
	systemPrompt string
	logger       *slog.Logger
}

type Option func(*Service)

// WithSystemPrompt replaces the embedded system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		if p := strings.TrimSpace(prompt); p != "" {
			s.systemPrompt = p
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(c Completer, model string, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, errors.New("relay: completer must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("relay: model must not be empty")
	}
	s := &Service{
		completer:    c,
		model:        model,
		systemPrompt: DefaultSystemPrompt(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open starts the upstream completion and returns a reader over its text.
// The reader ends with io.EOF when the completion finishes and with the
// upstream error if it fails part way. Closing the reader early cancels the
// upstream call. Failures before the stream starts are returned as *Error.
func (s *Service) Open(ctx context.Context, in StreamInput) (io.ReadCloser, error) {
	messages, err := s.BuildMessages(in.Body)
	if err != nil {
		return nil, newError(ErrorInvalidInput, "invalid_body", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	src, err := s.completer.StreamChat(ctx, s.model, messages)
	if err != nil {
		cancel()
		return nil, classifyOpenError(err)
	}

	pr, pw := io.Pipe()
	go s.pump(cancel, src, pw, in.CorrelationID)
	return &streamReader{PipeReader: pr, cancel: cancel}, nil
}

// streamReader cancels the upstream call on Close, so an idle upstream is
// released without waiting for its next fragment.
type streamReader struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (r *streamReader) Close() error {
	r.cancel()
	return r.PipeReader.Close()
}

func (s *Service) pump(cancel context.CancelFunc, src FragmentStream, pw *io.PipeWriter, correlationID string) {
	start := time.Now()
	defer cancel()
	defer func() { _ = src.Close() }()

	stats, err := Forward(src, pw)
	if err != nil {
		_ = pw.CloseWithError(err)
	} else {
		_ = pw.Close()
	}

	attrs := []any{
		"correlation_id", correlationID,
		"model", s.model,
		"fragments", stats.Fragments,
		"bytes", stats.Bytes,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
		s.logger.Info("relay stream completed", attrs...)
	case errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled):
		s.logger.Info("relay stream abandoned by caller", append(attrs, "err", err)...)
	default:
		s.logger.Error("relay stream failed", append(attrs, "err", err)...)
	}
}

type openAICompleter struct {
	client *openai.Client
}

// OpenAICompleter adapts an openai.Client to Completer.
func OpenAICompleter(client *openai.Client) Completer {
	return openAICompleter{client: client}
}

func (o openAICompleter) StreamChat(ctx context.Context, model string, messages []json.RawMessage) (FragmentStream, error) {
	stream, err := o.client.StreamChat(ctx, model, messages)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
