package ingestion

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/pipeline"
)

// HTTPHandler receives S3-style bucket notifications over HTTP, as sent by
// MinIO webhook targets.
type HTTPHandler struct {
	handler      *Handler
	logger       *zap.Logger
	maxBodyBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(handler *Handler, logger *zap.Logger, maxBodyBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		handler:      handler,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/events/objects", h.handleObjectEvents)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleObjectEvents(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	var notification events.S3Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&notification); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	report, err := h.handler.Process(r.Context(), FromS3Event(notification))
	if err != nil {
		h.logger.Error("object event batch failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "batch failed, retry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"persisted":   report.Count(pipeline.StatePersisted),
		"quarantined": report.Count(pipeline.StateQuarantined),
		"skipped":     report.Count(pipeline.StateSkipped),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
