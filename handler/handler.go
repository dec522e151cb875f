// Package handler exposes the relay over a Lambda Function URL in
// RESPONSE_STREAM mode and over plain net/http.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"bootcamp-tutor/internal/relay"
)

const (
	correlationHeader = "X-Correlation-Id"
	streamContentType = "text/plain; charset=utf-8"

	errorMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Streamer opens the relayed response for one request.
type Streamer interface {
	Open(ctx context.Context, in relay.StreamInput) (io.ReadCloser, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves Lambda Function URL invocations.
type Handler struct {
	relay  Streamer
	logger *slog.Logger
}

func NewHandler(s Streamer, logger *slog.Logger) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: streamer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{relay: s, logger: logger}, nil
}

// Handle answers POST requests with the relayed byte stream. Failures that
// happen before the stream opens are returned as a JSON error body; a
// failure after that is left to the streaming runtime, which aborts the
// response.
func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (*events.LambdaFunctionURLStreamingResponse, error) {
	correlationID := correlationIDFromMap(req.Headers)
	log := h.logger.With("correlation_id", correlationID)

	if !strings.EqualFold(req.RequestContext.HTTP.Method, http.MethodPost) {
		log.Warn("method not allowed", "method", req.RequestContext.HTTP.Method)
		return lambdaError(correlationID, http.StatusMethodNotAllowed, errorMethodNotAllowed), nil
	}

	body, err := lambdaBody(req)
	if err != nil {
		log.Warn("undecodable request body", "err", err)
		return lambdaError(correlationID, http.StatusBadRequest, string(relay.ErrorInvalidInput)), nil
	}

	stream, err := h.relay.Open(ctx, relay.StreamInput{Body: body, CorrelationID: correlationID})
	if err != nil {
		status, code := statusFor(err)
		logRejected(log, status, err)
		return lambdaError(correlationID, status, code), nil
	}

	return &events.LambdaFunctionURLStreamingResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":    streamContentType,
			"Cache-Control":   "no-cache",
			correlationHeader: correlationID,
		},
		Body: stream,
	}, nil
}

func lambdaBody(req events.LambdaFunctionURLRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("handler: decode base64 body: %w", err)
	}
	return b, nil
}

func lambdaError(correlationID string, status int, code string) *events.LambdaFunctionURLStreamingResponse {
	return &events.LambdaFunctionURLStreamingResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: strings.NewReader(errorBody(code)),
	}
}

func errorBody(code string) string {
	b, _ := json.Marshal(errorResponse{Error: code})
	return string(b)
}

// statusFor maps a relay failure onto an HTTP status and public error code.
func statusFor(err error) (int, string) {
	var relayErr *relay.Error
	if !errors.As(err, &relayErr) {
		return http.StatusInternalServerError, string(relay.ErrorInternal)
	}
	switch relayErr.Code {
	case relay.ErrorInvalidInput:
		return http.StatusBadRequest, string(relayErr.Code)
	case relay.ErrorRateLimited:
		return http.StatusTooManyRequests, string(relayErr.Code)
	case relay.ErrorUpstream:
		return http.StatusBadGateway, string(relayErr.Code)
	default:
		return http.StatusInternalServerError, string(relay.ErrorInternal)
	}
}

func logRejected(log *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error("relay request failed", "status", status, "err", err)
		return
	}
	log.Warn("relay request rejected", "status", status, "err", err)
}

// correlationIDFromMap finds the correlation header regardless of case;
// Function URLs deliver header names lower-cased.
func correlationIDFromMap(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) {
			return correlationIDOrNew(v)
		}
	}
	return newCorrelationID()
}

func correlationIDOrNew(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return newCorrelationID()
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
