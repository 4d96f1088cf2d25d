// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs completion with method, path, status, bytes and duration_ms, and
observes quickpoll_http_request_duration_seconds labelled by route
pattern. The wrapped ResponseWriter still implements http.Flusher and
http.Hijacker, which the event stream and WebSocket handlers need.

# CORS Middleware

Allow cross-origin requests from configured origins:

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins)(mux),
	}

Listed origins are echoed back with credentials allowed; "*" allows any
origin. Preflight requests are answered with 204.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.BodyError(w, err) // 413 past MaxBodyBytes, else 400
		return
	}

# Client IP Extraction

GetClientIP honours X-Forwarded-For and X-Real-IP before RemoteAddr. It is
only used for logging; votes are keyed by fingerprint or idempotency key.
*/
package middleware
