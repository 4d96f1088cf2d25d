// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options [{text}], hours, hide_results_until_vote
  - VoteRequest: option_id, fingerprint or idempotency_key

# Response Types

Types for JSON responses:

  - PollResponse: poll with options, expiry, and the creator secret when known
  - ResultsResponse: total_votes, results, expired, hidden_until_vote, insight
  - VoteResponse: message, voted_for, option_id plus the results fields
  - ErrorResponse: error, message

ResultsResponse is the payload of every SSE and WebSocket event, so a
client can feed pushes and fetched results through the same code.

# Domain Types

  - Poll: question, ordered options (2-4), creation and expiry times
  - Option: id unique within its poll, display text
  - Vote: one per (poll, voter identity)

# Limits

	MinOptions        = 2
	MaxOptions        = 4
	MaxQuestionLength = 120
	MaxOptionLength   = 120
*/
package models
