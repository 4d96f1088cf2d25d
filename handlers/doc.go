// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the quickpoll API.

# Handler Types

  - PollHandler: create and fetch polls
  - VotingHandler: cast votes
  - ResultsHandler: read the current tally
  - StreamHandler: live results over Server-Sent Events or WebSocket

PollHandler talks to the poll store directly. The others go through the
vote ledger, which owns the per-poll lock that orders votes and pushes:

	pollHandler := handlers.NewPollHandler(polls, cfg)
	votingHandler := handlers.NewVotingHandler(ledger, cfg)

# Voter Identity

Votes carry a browser fingerprint or an idempotency key (body field or
Idempotency-Key header). The fingerprint wins when both are sent. The
value is namespaced by kind and HMAC'd with IDENTITY_SALT before it
reaches storage, so raw fingerprints are never stored.

Read endpoints accept the same identity as ?fingerprint=,
?idempotency_key= or the Idempotency-Key header to report already_voted_option_id and to reveal hidden
results to people who have voted.

# Hidden Results

A poll created with hide_results_until_vote returns hidden_until_vote and
no counts until the reader has voted or presents the creator's secret as
?secret=. Expiry does not reveal results. On streams a hidden reader's
events carry no id and repeats of the same hidden payload are not sent.

# Status Codes

	201  poll created, vote recorded
	200  repeat vote (message "Already voted", original choice echoed)
	400  bad JSON, failed validation, missing identity or option
	413  request body over 64 KiB
	404  unknown poll or option
	409  vote after expiry

# Streams

Both transports send the current tally first and then one payload per
accepted vote, each shaped like GET /results. SSE events carry the tally
total as their id, and a comment line is sent every 25 seconds to keep
proxies from closing idle streams.
*/
package handlers
