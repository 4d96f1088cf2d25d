// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickpoll/auth"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/store"
	"github.com/danielhkuo/quickpoll/tally"
)

// voterIdentity derives the stored identity from whatever the client sent.
// A fingerprint wins over an idempotency key.
func voterIdentity(fingerprint, idempotencyKey, salt string) (string, error) {
	if fp := strings.TrimSpace(fingerprint); fp != "" {
		return auth.HashIdentity(auth.KindFingerprint, fp, salt)
	}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		return auth.HashIdentity(auth.KindIdempotencyKey, key, salt)
	}
	return "", auth.ErrEmptyIdentity
}

// queryIdentity reads an optional identity from ?fingerprint= or
// ?idempotency_key=, falling back to the Idempotency-Key header as the
// vote endpoint does. Empty means anonymous.
func queryIdentity(r *http.Request, salt string) string {
	q := r.URL.Query()
	key := q.Get("idempotency_key")
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	id, err := voterIdentity(q.Get("fingerprint"), key, salt)
	if err != nil {
		return ""
	}
	return id
}

// writeError maps store and ledger errors onto status codes.
func writeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		middleware.ErrorResponse(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, store.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	case errors.Is(err, store.ErrOptionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
	case errors.Is(err, store.ErrPollExpired):
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not open for voting")
	default:
		slog.Error("request failed", "action", action, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), store.ErrValidation.Error()+": ")
}

// expiresIn renders the time left (or since expiry) relative to now.
func expiresIn(expiresAt, now time.Time) string {
	if !now.Before(expiresAt) {
		return "expired " + humanize.RelTime(expiresAt, now, "ago", "from now")
	}
	return humanize.RelTime(expiresAt, now, "ago", "from now")
}

func pollResponse(p models.Poll, now time.Time, includeSecret bool) models.PollResponse {
	resp := models.PollResponse{
		ID:                   p.ID,
		Question:             p.Question,
		Options:              p.Options,
		CreatedAt:            p.CreatedAt,
		ExpiresAt:            p.ExpiresAt,
		ExpiresIn:            expiresIn(p.ExpiresAt, now),
		Expired:              p.Expired(now),
		HideResultsUntilVote: p.HidesResults(),
	}
	if includeSecret {
		resp.HideUntilVoteSecret = p.HideUntilVoteSecret
	}
	return resp
}

// resultsView decides what one reader of a poll may see. Results of a
// hidden poll become visible once the reader has voted or presents the
// creator secret, and stay visible after that.
type resultsView struct {
	ledger   *ledger.Ledger
	poll     models.Poll
	identity string
	voted    string
	revealed bool
}

func newResultsView(l *ledger.Ledger, poll models.Poll, identity, secret string) *resultsView {
	return &resultsView{
		ledger:   l,
		poll:     poll,
		identity: identity,
		revealed: !poll.HidesResults() || auth.SecretMatches(secret, poll.HideUntilVoteSecret),
	}
}

// markVoted records the reader's choice, which also reveals results.
func (v *resultsView) markVoted(optionID string) {
	v.voted = optionID
	v.revealed = true
}

// render builds the results payload for t. The reader's vote is looked up
// until one is found.
func (v *resultsView) render(ctx context.Context, t tally.Tally, now time.Time) (models.ResultsResponse, error) {
	if v.voted == "" && v.identity != "" {
		optionID, ok, err := v.ledger.HasVoted(ctx, v.poll.ID, v.identity)
		if err != nil {
			return models.ResultsResponse{}, err
		}
		if ok {
			v.markVoted(optionID)
		}
	}
	return buildResults(t, v.voted, v.revealed, v.poll.Expired(now)), nil
}

func buildResults(t tally.Tally, votedOptionID string, visible, expired bool) models.ResultsResponse {
	resp := models.ResultsResponse{
		Results:              []models.OptionResult{},
		AlreadyVotedOptionID: votedOptionID,
		Expired:              expired,
	}
	if !visible {
		resp.HiddenUntilVote = true
		return resp
	}

	resp.TotalVotes = t.Total
	for _, o := range t.Options {
		resp.Results = append(resp.Results, models.OptionResult{
			ID:     o.ID,
			Option: o.Text,
			Votes:  o.Votes,
		})
	}
	resp.Insight = tally.Insight(t)
	return resp
}
