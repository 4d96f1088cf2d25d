// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/clock"
	"github.com/danielhkuo/quickpoll/hub"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/store"
	"github.com/danielhkuo/quickpoll/tally"
	"github.com/danielhkuo/quickpoll/testutil"
)

type testEnv struct {
	db     *sql.DB
	cfg    cliparse.Config
	clock  *clock.Fake
	polls  *store.PollStore
	votes  *store.VoteStore
	hub    *hub.Hub
	ledger *ledger.Ledger

	pollHandler    *PollHandler
	votingHandler  *VotingHandler
	resultsHandler *ResultsHandler
	streamHandler  *StreamHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	clk := clock.NewFake(testutil.Epoch)

	polls := store.NewPollStore(db, clk, store.PollLimits{
		DefaultHours: cfg.DefaultPollHours,
		MaxHours:     cfg.MaxPollHours,
	})
	votes := store.NewVoteStore(db)
	h := hub.New(cfg.SubscriberQueue)
	t.Cleanup(h.Close)
	l := ledger.New(polls, votes, tally.NewEngine(polls, votes), h)

	return &testEnv{
		db:             db,
		cfg:            cfg,
		clock:          clk,
		polls:          polls,
		votes:          votes,
		hub:            h,
		ledger:         l,
		pollHandler:    NewPollHandler(polls, cfg),
		votingHandler:  NewVotingHandler(l, cfg),
		resultsHandler: NewResultsHandler(l, cfg),
		streamHandler:  NewStreamHandler(l, cfg),
	}
}

// createPoll creates a poll through the handler and returns the creator's view
func (e *testEnv) createPoll(t *testing.T, hide bool, options ...string) models.PollResponse {
	t.Helper()

	req := models.CreatePollRequest{
		Question:             "Favorite color?",
		Hours:                1,
		HideResultsUntilVote: hide,
	}
	for _, o := range options {
		req.Options = append(req.Options, models.OptionInput{Text: o})
	}

	w := httptest.NewRecorder()
	e.pollHandler.CreatePoll(w, testutil.MakeRequest("POST", "/api/polls", req, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("CreatePoll status %d: %s", w.Code, w.Body.String())
	}

	var resp models.PollResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

// vote submits a vote keyed by fingerprint
func (e *testEnv) vote(pollID, optionID, fingerprint string) *httptest.ResponseRecorder {
	body := models.VoteRequest{OptionID: optionID, Fingerprint: fingerprint}
	req := testutil.MakeRequest("POST", "/api/polls/"+pollID+"/vote", body, nil)
	req.SetPathValue("id", pollID)

	w := httptest.NewRecorder()
	e.votingHandler.Vote(w, req)
	return w
}

func (e *testEnv) results(t *testing.T, pollID, query string) models.ResultsResponse {
	t.Helper()

	path := "/api/polls/" + pollID + "/results"
	if query != "" {
		path += "?" + query
	}
	req := httptest.NewRequest("GET", path, nil)
	req.SetPathValue("id", pollID)

	w := httptest.NewRecorder()
	e.resultsHandler.GetResults(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ResultsResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func votesFor(resp models.ResultsResponse, optionID string) int {
	for _, r := range resp.Results {
		if r.ID == optionID {
			return r.Votes
		}
	}
	return -1
}

type sseEvent struct {
	ID   string
	Data models.ResultsResponse
}

// readEvent reads the next data event, skipping heartbeat comments.
// ID is empty when the event carried no id line.
func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()

	var ev sseEvent
	var hasData bool
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading event stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			if hasData {
				return ev
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Data); err != nil {
				t.Fatalf("bad event payload %q: %v", line, err)
			}
			hasData = true
		}
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
