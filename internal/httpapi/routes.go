package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"statsync/server/internal/metrics"
	"statsync/server/internal/progress"
	"statsync/server/internal/ratelimit"
	"statsync/server/internal/synckey"
)

// SyncKeyHeader carries the client's sync key out-of-band of the body.
const SyncKeyHeader = "X-Sync-Key"

// maxBodyBytes caps the whole submit body. It sits comfortably above the
// snapshot ceiling so the validator's distinct payload-too-large check
// fires for oversized snapshots; the reader cap only catches bodies bloated
// beyond any legitimate envelope.
const maxBodyBytes = progress.MaxSnapshotBytes + 4096

type jsonResponse map[string]any

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type recordResponse struct {
	UpdatedAt       time.Time       `json:"updatedAt"`
	ServerUpdatedAt time.Time       `json:"serverUpdatedAt"`
	Snapshot        json.RawMessage `json:"snapshot"`
}

type Server struct {
	service *progress.Service
	limiter *ratelimit.KeyLimiter
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewServer(service *progress.Service, limiter *ratelimit.KeyLimiter, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{service: service, limiter: limiter, metrics: m, log: log}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/sync/state", s.withRequestID(http.HandlerFunc(s.handleState)))
	mux.HandleFunc("/healthz", handleHealthz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(limitKey(r), time.Now()) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests", Code: "rate-limited"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleFetch(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Fetch(r.Context(), r.Header.Get(SyncKeyHeader))
	if err != nil {
		s.writeServiceError(w, r, "fetch", err)
		return
	}
	s.observe("fetch", "ok")
	writeJSON(w, http.StatusOK, recordResponse{
		UpdatedAt:       rec.UpdatedAt,
		ServerUpdatedAt: rec.ServerUpdatedAt,
		Snapshot:        rec.Snapshot,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.observe("submit", "payload-too-large")
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", Code: "payload-too-large"})
			return
		}
		s.observe("submit", "internal")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Code: "internal"})
		return
	}
	result, err := s.service.Submit(r.Context(), r.Header.Get(SyncKeyHeader), body)
	if err != nil {
		s.writeServiceError(w, r, "submit", err)
		return
	}
	if !result.Accepted {
		s.observe("submit", "conflict")
		writeJSON(w, http.StatusConflict, jsonResponse{
			"latest": recordResponse{
				UpdatedAt:       result.Latest.UpdatedAt,
				ServerUpdatedAt: result.Latest.ServerUpdatedAt,
				Snapshot:        result.Latest.Snapshot,
			},
		})
		return
	}
	s.observe("submit", "accepted")
	writeJSON(w, http.StatusOK, jsonResponse{
		"accepted":        true,
		"updatedAt":       result.Record.UpdatedAt,
		"serverUpdatedAt": result.Record.ServerUpdatedAt,
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, synckey.ErrInvalidKey):
		status, code = http.StatusBadRequest, "invalid-sync-key"
	case errors.Is(err, progress.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "malformed-payload"
	case errors.Is(err, progress.ErrPayloadTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "payload-too-large"
	case errors.Is(err, progress.ErrNotFound):
		status, code = http.StatusNotFound, "not-found"
	case errors.Is(err, progress.ErrBackendUnavailable):
		status, code = http.StatusServiceUnavailable, "backend-unavailable"
	default:
		status, code = http.StatusInternalServerError, "internal"
		s.log.Error("unexpected sync error", "op", op, "request_id", requestIDFrom(r.Context()), "err", err)
	}
	s.observe(op, code)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		// Internals stay in the logs, not in responses.
		message = code
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func (s *Server) observe(op, outcome string) {
	if s.metrics != nil {
		s.metrics.Observe(op, outcome)
	}
}

type contextKey string

const requestIDKey contextKey = "httpapi.request_id"

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.log.Info("sync request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"sync_key", r.Header.Get(SyncKeyHeader),
		)
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// limitKey throttles on the raw sync key header when present, otherwise on
// the remote address, so keyless probing cannot bypass the limiter.
func limitKey(r *http.Request) string {
	if key := r.Header.Get(SyncKeyHeader); key != "" {
		return key
	}
	return r.RemoteAddr
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method-not-allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
