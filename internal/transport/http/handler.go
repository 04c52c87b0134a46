// internal/transport/http/handler.go
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"checkin-service/internal/common/auth"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the reply engine the API delegates to.
type Service interface {
	GetRequestDetail(ctx context.Context, requestID int64) (*models.RequestDetail, error)
	GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error)
	GetRequestReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, error)
	SubmitReplies(ctx context.Context, requestID int64, profileID string, batch []models.ReplyEntry) (*models.RequestInfo, error)
	SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error)
}

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	// Validator enables bearer token identity; nil trusts ProfileHeader.
	Validator      auth.TokenValidator
	ProfileHeader  string
	RequestTimeout time.Duration
	Readiness      map[string]ReadinessCheck
}

type Handler struct {
	service Service
	logger  logger.Logger
	opts    Options
}

func NewHandler(service Service, log logger.Logger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Handler{
		service: service,
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
		opts:    opts,
	}
}

type submitRepliesRequest struct {
	Replies []models.ReplyEntry `json:"replies"`
}

// Register mounts the API, health and metrics routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(RequestID)
	api.Use(Recovery(h.logger))
	api.Use(Instrument(h.logger))
	api.Use(Identity(h.opts.Validator, h.opts.ProfileHeader, h.logger))
	api.Route("/requests/{requestID}", func(rr chi.Router) {
		rr.Get("/", h.handleGetRequest)
		rr.Get("/questions", h.handleGetQuestions)
		rr.Get("/replies", h.handleGetReplies)
		rr.Post("/replies", h.handleSubmitReplies)
		rr.Get("/replies/search", h.handleSearchReplies)
	})

	r.Mount("/", api)
}

// NewRouter returns a router with every route registered.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.opts.RequestTimeout)
}

func requestIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request id"})
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	detail, err := h.service.GetRequestDetail(ctx, requestID)
	if err != nil {
		h.logFailure(ctx, "get request failed", requestID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleGetQuestions(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request id"})
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	questions, err := h.service.GetRequestQuestions(ctx, requestID)
	if err != nil {
		h.logFailure(ctx, "get questions failed", requestID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"request_questions": questions})
}

func (h *Handler) handleGetReplies(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request id"})
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	groups, err := h.service.GetRequestReplies(ctx, requestID)
	if err != nil {
		h.logFailure(ctx, "get replies failed", requestID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"request_replies": groups})
}

func (h *Handler) handleSubmitReplies(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request id"})
		return
	}

	// an empty body is a request without replies
	var body submitRepliesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid submit replies request", map[string]interface{}{
			"error":     err,
			"requestId": GetRequestID(r.Context()),
		})
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	info, err := h.service.SubmitReplies(ctx, requestID, GetProfileID(r.Context()), body.Replies)
	if err != nil {
		h.logFailure(ctx, "submit replies failed", requestID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleSearchReplies(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request id"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		limit = n
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	hits, err := h.service.SearchReplies(ctx, requestID, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logFailure(ctx, "search replies failed", requestID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hits": hits})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.opts.Readiness))
	status := http.StatusOK
	for name, check := range h.opts.Readiness {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

func (h *Handler) logFailure(ctx context.Context, msg string, requestID int64, err error) {
	h.logger.Warn(msg, map[string]interface{}{
		"error":     err,
		"checkinId": requestID,
		"requestId": GetRequestID(ctx),
		"profileId": GetProfileID(ctx),
	})
}
