// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/testutil"
)

func (e *testEnv) streamServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/polls/{id}/sse", middleware.WithLogging(e.streamHandler.SSE))
	mux.HandleFunc("GET /api/polls/{id}/ws", middleware.WithLogging(e.streamHandler.WebSocket))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// openSSE connects to the poll's event stream and returns a reader over it
func openSSE(t *testing.T, ctx context.Context, srv *httptest.Server, pollID, query string) *bufio.Reader {
	t.Helper()

	url := srv.URL + "/api/polls/" + pollID + "/sse"
	if query != "" {
		url += "?" + query
	}
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET sse: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %q", ct)
	}
	return bufio.NewReader(resp.Body)
}

func TestSSEPushesEveryAcceptedVote(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, false, "Red", "Blue")
	red, blue := poll.Options[0].ID, poll.Options[1].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream := openSSE(t, ctx, srv, poll.ID, "")

	ev := readEvent(t, stream)
	if ev.ID != "0" || ev.Data.TotalVotes != 0 || len(ev.Data.Results) != 2 {
		t.Fatalf("Expected initial snapshot, got %+v", ev)
	}

	env.vote(poll.ID, red, "a")
	env.vote(poll.ID, blue, "a") // duplicate, no push
	env.vote(poll.ID, blue, "b")

	ev = readEvent(t, stream)
	if ev.ID != "1" || votesFor(ev.Data, red) != 1 {
		t.Errorf("Expected Red:1 as event 1, got %+v", ev)
	}
	ev = readEvent(t, stream)
	if ev.ID != "2" || votesFor(ev.Data, blue) != 1 || ev.Data.TotalVotes != 2 {
		t.Errorf("Expected Blue:1 total 2 as event 2, got %+v", ev)
	}

	// Pushed payloads have the same shape as GET /results
	if want := env.results(t, poll.ID, ""); !reflect.DeepEqual(ev.Data, want) {
		t.Errorf("Stream payload %+v differs from results %+v", ev.Data, want)
	}
}

func TestSSEHiddenPollRevealsAfterVoting(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, true, "Yes", "No")
	yes := poll.Options[0].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream := openSSE(t, ctx, srv, poll.ID, "fingerprint=watcher")

	ev := readEvent(t, stream)
	if !ev.Data.HiddenUntilVote || ev.Data.TotalVotes != 0 || len(ev.Data.Results) != 0 {
		t.Fatalf("Expected hidden snapshot, got %+v", ev.Data)
	}
	if ev.ID != "" {
		t.Errorf("Hidden event must not carry the vote count as its id, got %q", ev.ID)
	}

	env.vote(poll.ID, yes, "someone-else")
	env.vote(poll.ID, yes, "another")
	env.vote(poll.ID, yes, "watcher")

	// Votes by others produce no event while results are hidden from the
	// watcher. Pushes rendered after the watcher voted are revealed.
	for {
		ev = readEvent(t, stream)
		if ev.Data.HiddenUntilVote {
			t.Fatalf("Watcher received a repeated hidden event: id=%q %+v", ev.ID, ev.Data)
		}
		if ev.ID != strconv.Itoa(ev.Data.TotalVotes) {
			t.Errorf("Expected id %d on a revealed event, got %q", ev.Data.TotalVotes, ev.ID)
		}
		if ev.Data.TotalVotes == 3 {
			break
		}
	}
	if ev.Data.AlreadyVotedOptionID != yes || votesFor(ev.Data, yes) != 3 {
		t.Errorf("Watcher voted and should now see results: %+v", ev.Data)
	}
}

func TestSSEHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	env.streamHandler.heartbeat = 10 * time.Millisecond
	srv := env.streamServer(t)
	poll := env.createPoll(t, false, "Yes", "No")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream := openSSE(t, ctx, srv, poll.ID, "")
	readEvent(t, stream)

	for {
		line, err := stream.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, ": ping") {
			return
		}
	}
}

func TestSSEUnknownPoll(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/polls/missing/sse", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	env.streamHandler.SSE(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
	if env.hub.Polls() != 0 {
		t.Error("Failed stream must not leave a subscription behind")
	}
}

func TestSSEDisconnectUnsubscribes(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, false, "Yes", "No")

	ctx, cancel := context.WithCancel(context.Background())
	stream := openSSE(t, ctx, srv, poll.ID, "")
	readEvent(t, stream)

	if env.hub.Count(poll.ID) != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", env.hub.Count(poll.ID))
	}

	cancel()
	waitFor(t, "subscriber to leave", func() bool { return env.hub.Count(poll.ID) == 0 })

	// Voting still works with nobody listening
	testutil.AssertStatus(t, env.vote(poll.ID, poll.Options[0].ID, "after"), http.StatusCreated)
}

func TestSSEEndsOnHubClose(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, false, "Yes", "No")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream := openSSE(t, ctx, srv, poll.ID, "")
	readEvent(t, stream)

	env.hub.Close()

	// The server ends the response, so the body reaches EOF
	for {
		if _, err := stream.ReadString('\n'); err != nil {
			if ctx.Err() != nil {
				t.Fatal("stream did not end after hub close")
			}
			return
		}
	}
}

func TestWebSocketMirrorsStream(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, false, "Red", "Blue")
	red := poll.Options[0].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/polls/" + poll.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() models.ResultsResponse {
		t.Helper()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if typ != websocket.MessageText {
			t.Fatalf("Expected text frame, got %v", typ)
		}
		var resp models.ResultsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		return resp
	}

	if first := read(); first.TotalVotes != 0 || len(first.Results) != 2 {
		t.Fatalf("Expected initial snapshot, got %+v", first)
	}

	env.vote(poll.ID, red, "a")
	if got := read(); got.TotalVotes != 1 || votesFor(got, red) != 1 {
		t.Errorf("Expected Red:1, got %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
	waitFor(t, "subscriber to leave", func() bool { return env.hub.Count(poll.ID) == 0 })
}

func TestWebSocketHiddenPollSkipsRepeats(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)
	poll := env.createPoll(t, true, "Yes", "No")
	yes := poll.Options[0].ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/polls/" + poll.ID + "/ws?fingerprint=watcher"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() models.ResultsResponse {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		var resp models.ResultsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		return resp
	}

	if first := read(); !first.HiddenUntilVote {
		t.Fatalf("Expected hidden snapshot, got %+v", first)
	}

	env.vote(poll.ID, yes, "someone-else")
	env.vote(poll.ID, yes, "watcher")

	for {
		got := read()
		if got.HiddenUntilVote {
			t.Fatalf("Watcher received a repeated hidden frame: %+v", got)
		}
		if got.TotalVotes == 2 {
			break
		}
	}
}

func TestWebSocketUnknownPoll(t *testing.T) {
	env := newTestEnv(t)
	srv := env.streamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/polls/missing/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		t.Fatal("Expected dial to fail for unknown poll")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 response, got %+v", resp)
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"http://localhost:5173", "https://poll.example.com", "*", "not a url"})
	want := []string{"localhost:5173", "poll.example.com", "*"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("originPatterns() = %v, want %v", got, want)
	}
}
