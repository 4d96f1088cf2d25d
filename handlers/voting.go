// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/models"
)

type VotingHandler struct {
	ledger *ledger.Ledger
	cfg    cliparse.Config
}

func NewVotingHandler(l *ledger.Ledger, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{ledger: l, cfg: cfg}
}

// Vote handles POST /api/polls/{id}/vote
//
// A repeat vote from the same identity answers 200 with the original
// choice instead of an error, so clients can retry freely.
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(w, r, &req); err != nil {
		middleware.BodyError(w, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}
	identity, err := voterIdentity(req.Fingerprint, req.IdempotencyKey, h.cfg.IdentitySalt)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "fingerprint or idempotency_key is required")
		return
	}

	res, err := h.ledger.Cast(r.Context(), pollID, req.OptionID, identity)
	if err != nil {
		writeError(w, err, "record vote")
		return
	}

	expired := res.Poll.Expired(h.ledger.Polls().Now())

	if !res.Accepted {
		var votedFor string
		if opt, ok := res.Poll.Option(res.ExistingOptionID); ok {
			votedFor = opt.Text
		}
		slog.Info("duplicate vote", "poll_id", pollID, "option_id", res.ExistingOptionID)
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
			Message:         models.MessageAlreadyVoted,
			VotedFor:        votedFor,
			OptionID:        res.ExistingOptionID,
			ResultsResponse: buildResults(res.Tally, res.ExistingOptionID, true, expired),
		})
		return
	}

	slog.Info("vote recorded", "poll_id", pollID, "option_id", res.OptionID, "total_votes", res.Tally.Total)
	middleware.JSONResponse(w, http.StatusCreated, models.VoteResponse{
		Message:         models.MessageVoteRecorded,
		OptionID:        res.OptionID,
		ResultsResponse: buildResults(res.Tally, "", true, expired),
	})
}
