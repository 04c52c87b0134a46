// internal/transport/http/middleware.go
package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkin-service/internal/common/auth"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/common/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKeyRequestID struct{}
type contextKeyProfileID struct{}

var (
	ContextKeyRequestID = contextKeyRequestID{}
	ContextKeyProfileID = contextKeyProfileID{}
)

const requestIDHeader = "X-Request-ID"

// GetRequestID returns the correlation id assigned by RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// GetProfileID returns the caller's profile id, or "" for an anonymous caller.
func GetProfileID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyProfileID).(string)
	return id
}

// RequestID keeps an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recovery turns a handler panic into a 500.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic serving request", map[string]interface{}{
						"panic":     rec,
						"path":      r.URL.Path,
						"requestId": GetRequestID(r.Context()),
					})
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument logs every request and records its route metrics.
func Instrument(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			log.Info("request served", map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     rec.status,
				"durationMs": elapsed.Milliseconds(),
				"requestId":  GetRequestID(r.Context()),
			})
		})
	}
}

// Identity resolves the caller. With a validator, a bearer token is required to
// carry identity and an invalid one is rejected; without one, profileHeader is
// trusted as is. Anonymous callers pass through; writes reject them later.
func Identity(validator auth.TokenValidator, profileHeader string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var profileID string

			if validator != nil {
				if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
					info, err := validator.ValidateToken(ctx, token)
					if err != nil {
						log.Warn("unauthorized access - invalid token", map[string]interface{}{
							"error":     err,
							"requestId": GetRequestID(ctx),
						})
						writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
						return
					}
					profileID = info.Sub
				}
			} else if profileHeader != "" {
				profileID = strings.TrimSpace(r.Header.Get(profileHeader))
			}

			if profileID != "" {
				ctx = context.WithValue(ctx, ContextKeyProfileID, profileID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
