package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"bootcamp-tutor/internal/relay"
)

type stubStreamer struct {
	body  string
	err   error
	in    relay.StreamInput
	calls int
}

func (s *stubStreamer) Open(_ context.Context, in relay.StreamInput) (io.ReadCloser, error) {
	s.calls++
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeEvent(method, body string) events.LambdaFunctionURLRequest {
	return events.LambdaFunctionURLRequest{
		RawPath: "/",
		Headers: map[string]string{"content-type": "application/json"},
		RequestContext: events.LambdaFunctionURLRequestContext{
			HTTP: events.LambdaFunctionURLRequestContextHTTPDescription{Method: method, Path: "/"},
		},
		Body: body,
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, s Streamer) *Handler {
	t.Helper()
	h, err := NewHandler(s, quietLogger())
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	s := &stubStreamer{body: "Hello there"}
	h := newTestHandler(t, s)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `[{"role":"user","content":"Hi"}]`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Headers["Content-Type"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, "Hello there", readAll(t, resp.Body))

	require.Equal(t, `[{"role":"user","content":"Hi"}]`, string(s.in.Body))
	require.Equal(t, resp.Headers["X-Correlation-Id"], s.in.CorrelationID)
}

func TestHandle_Base64Body(t *testing.T) {
	s := &stubStreamer{}
	h := newTestHandler(t, s)

	raw := `[{"role":"user","content":"Hi"}]`
	event := makeEvent(http.MethodPost, base64.StdEncoding.EncodeToString([]byte(raw)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, raw, string(s.in.Body))

	event.Body = "%%%"
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 1, s.calls)
}

func TestHandle_RejectsOtherMethods(t *testing.T) {
	s := &stubStreamer{}
	h := newTestHandler(t, s)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	out := parseBody[errorResponse](t, readAll(t, resp.Body))
	require.Equal(t, "METHOD_NOT_ALLOWED", out.Error)
	require.Zero(t, s.calls)
}

func TestHandle_MapsRelayErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &relay.Error{Code: relay.ErrorInvalidInput, Reason: "invalid_body"}, status: http.StatusBadRequest, code: string(relay.ErrorInvalidInput)},
		{name: "rate limited", err: &relay.Error{Code: relay.ErrorRateLimited, Reason: "upstream_rate_limited"}, status: http.StatusTooManyRequests, code: string(relay.ErrorRateLimited)},
		{name: "upstream", err: &relay.Error{Code: relay.ErrorUpstream, Reason: "upstream_error"}, status: http.StatusBadGateway, code: string(relay.ErrorUpstream)},
		{name: "internal", err: &relay.Error{Code: relay.ErrorInternal, Reason: "credential_error"}, status: http.StatusInternalServerError, code: string(relay.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(relay.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubStreamer{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `[]`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, "application/json", resp.Headers["Content-Type"])

			out := parseBody[errorResponse](t, readAll(t, resp.Body))
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	s := &stubStreamer{body: "ok"}
	h := newTestHandler(t, s)

	event := makeEvent(http.MethodPost, `[]`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
	require.Equal(t, "corr-123", s.in.CorrelationID)
}

func TestHandle_GeneratesCorrelationID(t *testing.T) {
	orig := newCorrelationID
	t.Cleanup(func() { newCorrelationID = orig })
	newCorrelationID = func() string { return "generated-1" }

	h := newTestHandler(t, &stubStreamer{})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, `[]`))
	require.NoError(t, err)
	require.Equal(t, "generated-1", resp.Headers["X-Correlation-Id"])
}
