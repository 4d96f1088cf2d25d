// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickpoll/auth"
	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/metrics"
	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/store"
)

type PollHandler struct {
	polls *store.PollStore
	cfg   cliparse.Config
}

func NewPollHandler(polls *store.PollStore, cfg cliparse.Config) *PollHandler {
	return &PollHandler{polls: polls, cfg: cfg}
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.BodyError(w, err)
		return
	}

	options := make([]string, len(req.Options))
	for i, o := range req.Options {
		options[i] = o.Text
	}

	poll, err := h.polls.Create(r.Context(), store.NewPoll{
		Question:             req.Question,
		Options:              options,
		Hours:                req.Hours,
		HideResultsUntilVote: req.HideResultsUntilVote,
	})
	if err != nil {
		writeError(w, err, "create poll")
		return
	}

	metrics.PollsCreated.Inc()
	slog.Info("poll created",
		"poll_id", poll.ID,
		"options", len(poll.Options),
		"expires_at", poll.ExpiresAt,
		"hidden", poll.HidesResults(),
	)

	// The creator is the only caller that ever receives the secret unasked
	middleware.JSONResponse(w, http.StatusCreated, pollResponse(poll, h.polls.Now(), true))
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.polls.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "load poll")
		return
	}

	secret := r.URL.Query().Get("secret")
	includeSecret := auth.SecretMatches(secret, poll.HideUntilVoteSecret)

	middleware.JSONResponse(w, http.StatusOK, pollResponse(poll, h.polls.Now(), includeSecret))
}
