// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/middleware"
)

type ResultsHandler struct {
	ledger *ledger.Ledger
	cfg    cliparse.Config
}

func NewResultsHandler(l *ledger.Ledger, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{ledger: l, cfg: cfg}
}

// GetResults handles GET /api/polls/{id}/results
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	poll, err := h.ledger.Polls().Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "load poll")
		return
	}

	t, err := h.ledger.Tally(ctx, poll.ID)
	if err != nil {
		writeError(w, err, "load results")
		return
	}

	view := newResultsView(h.ledger, poll, queryIdentity(r, h.cfg.IdentitySalt), r.URL.Query().Get("secret"))
	resp, err := view.render(ctx, t, h.ledger.Polls().Now())
	if err != nil {
		writeError(w, err, "load results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
