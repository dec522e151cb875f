package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bootcamp-tutor/internal/relay"
)

const maxBodyBytes = 1 << 20

// NewHTTPHandler serves the relay at POST /api/chat with the same contract as
// the Lambda handler, plus GET /healthz.
func NewHTTPHandler(s Streamer, logger *slog.Logger) (http.Handler, error) {
	h, err := NewHandler(s, logger)
	if err != nil {
		return nil, err
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/chat", h.serveChat)
	return r, nil
}

func (h *Handler) serveChat(w http.ResponseWriter, r *http.Request) {
	correlationID := correlationIDOrNew(r.Header.Get(correlationHeader))
	log := h.logger.With("correlation_id", correlationID)
	w.Header().Set(correlationHeader, correlationID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body too large", "limit", tooLarge.Limit)
			writeJSONError(w, http.StatusRequestEntityTooLarge, string(relay.ErrorInvalidInput))
			return
		}
		log.Warn("read request body", "err", err)
		writeJSONError(w, http.StatusBadRequest, string(relay.ErrorInvalidInput))
		return
	}

	stream, err := h.relay.Open(r.Context(), relay.StreamInput{Body: body, CorrelationID: correlationID})
	if err != nil {
		status, code := statusFor(err)
		logRejected(log, status, err)
		writeJSONError(w, status, code)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", streamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	fw := flushWriter{w: w}
	fw.flusher, _ = w.(http.Flusher)
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	if _, err := io.Copy(fw, stream); err != nil {
		// The status line is already sent; abort so the client sees a
		// truncated body instead of a clean end.
		log.Warn("aborting relayed response", "err", err)
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, errorBody(code))
}

// flushWriter pushes every fragment to the client as soon as it is written.
// It has no ReadFrom, so io.Copy hands it one fragment at a time.
type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}
