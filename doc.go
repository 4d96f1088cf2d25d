// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the quickpoll API server.

quickpoll runs short single-choice polls: create a poll with two to four
options and an expiry, share its link, collect one vote per voter, and
watch the tally update live.

# Starting the Server

IDENTITY_SALT is the only required setting; SQLite is the default store:

	IDENTITY_SALT=dev-salt go run .

Or against PostgreSQL:

	go run . -t postgres -d "postgres://..." --identity-salt dev-salt

Add --seed to insert a sample poll. Settings may also live in a .env file
in the working directory.

# Architecture

  - store: poll and vote persistence (database/sql, sqlite or postgres)
  - tally: in-memory vote counts, loaded once per poll then incremented
  - ledger: the vote write path, serialized per poll
  - hub: fan-out of tally updates to live subscribers
  - handlers, router, middleware: HTTP, SSE and WebSocket surface
  - auth: identifiers, secrets and voter identity hashing
  - cliparse, logging, metrics: configuration and observability

On SIGINT or SIGTERM the hub is closed, which ends every live stream, and
the HTTP server drains in-flight requests.
*/
package main
