// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/testutil"
)

func TestGetResults(t *testing.T) {
	env := newTestEnv(t)
	poll := env.createPoll(t, false, "Red", "Blue")
	red, blue := poll.Options[0].ID, poll.Options[1].ID

	resp := env.results(t, poll.ID, "")
	if resp.TotalVotes != 0 || len(resp.Results) != 2 {
		t.Fatalf("Expected two empty rows, got %+v", resp)
	}
	if resp.HiddenUntilVote || resp.Expired || resp.Insight != "" {
		t.Errorf("Unexpected flags on fresh poll: %+v", resp)
	}

	env.vote(poll.ID, red, "a")
	env.vote(poll.ID, red, "b")
	env.vote(poll.ID, blue, "c")

	resp = env.results(t, poll.ID, "")
	if resp.TotalVotes != 3 || votesFor(resp, red) != 2 || votesFor(resp, blue) != 1 {
		t.Errorf("Expected Red:2 Blue:1, got %+v", resp)
	}
	if resp.Results[0].Option != "Red" || resp.Results[1].Option != "Blue" {
		t.Errorf("Results should follow option order, got %+v", resp.Results)
	}
	if resp.AlreadyVotedOptionID != "" {
		t.Error("Anonymous reader should not have a vote")
	}

	resp = env.results(t, poll.ID, "fingerprint=c")
	if resp.AlreadyVotedOptionID != blue {
		t.Errorf("Expected already_voted_option_id %s, got %q", blue, resp.AlreadyVotedOptionID)
	}
}

func TestGetResultsHiddenUntilVote(t *testing.T) {
	env := newTestEnv(t)
	poll := env.createPoll(t, true, "Yes", "No")
	yes := poll.Options[0].ID

	env.vote(poll.ID, yes, "voter-1")

	t.Run("anonymous reader sees nothing", func(t *testing.T) {
		resp := env.results(t, poll.ID, "")
		if !resp.HiddenUntilVote {
			t.Error("Expected hidden_until_vote")
		}
		if resp.TotalVotes != 0 || len(resp.Results) != 0 {
			t.Errorf("Hidden results leaked: %+v", resp)
		}
	})

	t.Run("reader who has not voted sees nothing", func(t *testing.T) {
		resp := env.results(t, poll.ID, "fingerprint=voter-2")
		if !resp.HiddenUntilVote || resp.TotalVotes != 0 {
			t.Errorf("Hidden results leaked: %+v", resp)
		}
	})

	t.Run("voter sees results", func(t *testing.T) {
		resp := env.results(t, poll.ID, "fingerprint=voter-1")
		if resp.HiddenUntilVote || resp.TotalVotes != 1 || votesFor(resp, yes) != 1 {
			t.Errorf("Voter should see results, got %+v", resp)
		}
		if resp.AlreadyVotedOptionID != yes {
			t.Errorf("Expected already_voted_option_id %s", yes)
		}
	})

	t.Run("creator secret reveals", func(t *testing.T) {
		resp := env.results(t, poll.ID, "secret="+poll.HideUntilVoteSecret)
		if resp.HiddenUntilVote || resp.TotalVotes != 1 {
			t.Errorf("Secret holder should see results, got %+v", resp)
		}
	})

	t.Run("expiry alone does not reveal", func(t *testing.T) {
		env.clock.Set(poll.ExpiresAt)
		resp := env.results(t, poll.ID, "")
		if !resp.Expired || !resp.HiddenUntilVote {
			t.Errorf("Expected expired and still hidden, got %+v", resp)
		}
	})
}

func TestGetResultsIdempotencyKeyHeader(t *testing.T) {
	env := newTestEnv(t)
	poll := env.createPoll(t, true, "Yes", "No")
	yes := poll.Options[0].ID

	body := models.VoteRequest{OptionID: yes}
	headers := map[string]string{"Idempotency-Key": "device-42"}
	req := testutil.MakeRequest("POST", "/api/polls/"+poll.ID+"/vote", body, headers)
	req.SetPathValue("id", poll.ID)
	w := httptest.NewRecorder()
	env.votingHandler.Vote(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	get := func(key string) models.ResultsResponse {
		t.Helper()
		req := httptest.NewRequest("GET", "/api/polls/"+poll.ID+"/results", nil)
		req.Header.Set("Idempotency-Key", key)
		req.SetPathValue("id", poll.ID)
		w := httptest.NewRecorder()
		env.resultsHandler.GetResults(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.ResultsResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	if resp := get("device-42"); resp.HiddenUntilVote || resp.AlreadyVotedOptionID != yes {
		t.Errorf("Header identity should reveal the voter's results, got %+v", resp)
	}
	if resp := get("device-43"); !resp.HiddenUntilVote {
		t.Errorf("Other key must not reveal results, got %+v", resp)
	}
}

func TestGetResultsInsight(t *testing.T) {
	env := newTestEnv(t)
	poll := env.createPoll(t, false, "Tabs", "Spaces")
	tabs, spaces := poll.Options[0].ID, poll.Options[1].ID

	for i := 0; i < 19; i++ {
		opt := tabs
		if i%4 == 0 {
			opt = spaces
		}
		env.vote(poll.ID, opt, fmt.Sprintf("v%d", i))
	}
	if resp := env.results(t, poll.ID, ""); resp.Insight != "" {
		t.Errorf("No insight expected below 20 votes, got %q", resp.Insight)
	}

	env.vote(poll.ID, tabs, "v19")
	resp := env.results(t, poll.ID, "")
	if resp.TotalVotes != 20 {
		t.Fatalf("Expected 20 votes, got %d", resp.TotalVotes)
	}
	// 15 of 20 is 75%
	if resp.Insight != "Clear favorite emerging: Tabs" {
		t.Errorf("Unexpected insight %q", resp.Insight)
	}
}

func TestGetResultsNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/polls/missing/results", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	env.resultsHandler.GetResults(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}
