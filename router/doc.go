// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the quickpoll API.

# Route Registration

	mux := router.NewRouter(db, ledger, cfg)

# Endpoints

Operational:

	GET /health   - Database ping, "OK" or 503
	GET /metrics  - Prometheus metrics
	GET /         - Banner

Polls:

	POST /api/polls                - Create poll
	GET  /api/polls/{id}           - Poll and options
	POST /api/polls/{id}/vote      - Cast a vote
	GET  /api/polls/{id}/results   - Current tally
	GET  /api/polls/{id}/sse       - Live tally (Server-Sent Events)
	GET  /api/polls/{id}/ws        - Live tally (WebSocket)

API routes are wrapped with middleware.WithLogging. CORS is applied
around the whole mux in main.
*/
package router
