package eas

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/pkg/auth"
	"github.com/veilmail/easgate/pkg/metrics"
	"github.com/veilmail/easgate/pkg/state/models"
)

// userKey is a private type for the authenticated-user context entry
type userKey struct{}

// authenticatedUser retrieves the user placed in the context by
// basicAuth, or nil outside the middleware.
func authenticatedUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// basicAuth enforces HTTP Basic authentication against the user store.
// Unauthenticated requests get a 401 with a challenge; authenticated
// ones proceed with the user in the request context and a request-scoped
// LogContext installed.
func basicAuth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="ActiveSync"`)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			user, err := authSvc.Authenticate(r.Context(), username, password)
			if err != nil {
				logger.Warn("Authentication failed",
					logger.Username(username),
					logger.ClientIP(clientIP(r)),
					logger.Err(err))
				w.Header().Set("WWW-Authenticate", `Basic realm="ActiveSync"`)
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}

			lc := logger.NewLogContext(clientIP(r)).WithUser(user.Username)
			ctx := logger.WithContext(r.Context(), lc)
			ctx = context.WithValue(ctx, userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP middleware has
// already substituted forwarded addresses where present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestMetrics records per-command request metrics. A no-op metrics
// instance keeps the overhead at a function call when collection is
// disabled.
func requestMetrics(m metrics.EASMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cmd := r.URL.Query().Get("Cmd")
			if cmd == "" {
				cmd = r.Method
			}
			start := time.Now()
			m.RecordRequestStart(cmd)
			defer m.RecordRequestEnd(cmd)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			m.RecordRequest(cmd, time.Since(start), ww.Status())
			m.RecordPayloadBytes(cmd, ww.BytesWritten())
		})
	}
}

// requestLogger logs request start and completion using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("Request started",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			logger.ClientIP(clientIP(r)))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("Request completed",
			logger.RequestID(requestID),
			"method", r.Method,
			"cmd", r.URL.Query().Get("Cmd"),
			logger.HTTPStatus(ww.Status()),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(float64(time.Since(start).Microseconds())/1000.0))
	})
}
