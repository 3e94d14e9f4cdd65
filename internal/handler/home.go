// Package handler contains the HTTP request handlers for the API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc: a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, headers)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic: they are the glue between HTTP
// and the services.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything whose liveness /health can check. *sqlite.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HomeHandler serves the service endpoints that are not part of the API
// proper: the welcome document and the health check.
type HomeHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHomeHandler creates a HomeHandler. db may be nil, in which case /health
// only reports that the process is up.
func NewHomeHandler(db Pinger, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{db: db, logger: logger}
}

// HandleRoot serves GET /.
func (h *HomeHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to DevSnap API! 🚀",
		"status":  "running",
	})
}

// HandleHealth serves GET /health. It answers 503 when the database does not
// respond, so a load balancer stops routing to this instance.
func (h *HomeHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check: database ping failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"message": "database unavailable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "API is running!",
	})
}
