package eas

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/veilmail/easgate/internal/adapter/eas/handlers"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/pkg/auth"
	promMetrics "github.com/veilmail/easgate/pkg/metrics/prometheus"
)

// NewRouter wires the ActiveSync endpoint with its middleware stack and
// the default request body cap.
//
// No request timeout is installed: Ping legitimately holds connections
// for up to the heartbeat cap, and the engine bounds that itself.
func NewRouter(h *handlers.Handler, authSvc *auth.Service) http.Handler {
	return newRouter(h, authSvc, defaultMaxRequestBody)
}

func newRouter(h *handlers.Handler, authSvc *auth.Service, maxBody int64) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(requestMetrics(promMetrics.NewEASMetrics()))
	r.Use(middleware.Recoverer)

	ep := &endpoint{handler: h, maxBody: maxBody}

	r.Route(eas.Endpoint, func(r chi.Router) {
		r.Use(basicAuth(authSvc))
		r.Options("/", ep.handleOptions)
		r.Post("/", ep.handlePost)
	})

	// Liveness probe - unauthenticated
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
