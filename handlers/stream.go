// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/danielhkuo/quickpoll/cliparse"
	"github.com/danielhkuo/quickpoll/hub"
	"github.com/danielhkuo/quickpoll/ledger"
	"github.com/danielhkuo/quickpoll/middleware"
	"github.com/danielhkuo/quickpoll/tally"
)

const (
	defaultHeartbeat    = 25 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// StreamHandler pushes a poll's results after every accepted vote, over
// Server-Sent Events or a WebSocket.
type StreamHandler struct {
	ledger *ledger.Ledger
	cfg    cliparse.Config

	heartbeat      time.Duration
	writeTimeout   time.Duration
	originPatterns []string
}

func NewStreamHandler(l *ledger.Ledger, cfg cliparse.Config) *StreamHandler {
	return &StreamHandler{
		ledger:         l,
		cfg:            cfg,
		heartbeat:      defaultHeartbeat,
		writeTimeout:   defaultWriteTimeout,
		originPatterns: originPatterns(cfg.CORSOrigins),
	}
}

// open resolves the poll and registers a subscription. Errors are written
// to w, and nil is returned.
func (h *StreamHandler) open(w http.ResponseWriter, r *http.Request) (*hub.Subscription, *streamCursor) {
	ctx := r.Context()

	poll, err := h.ledger.Polls().Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "open stream")
		return nil, nil
	}

	sub, err := h.ledger.Subscribe(ctx, poll.ID)
	if errors.Is(err, hub.ErrClosed) {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Server is shutting down")
		return nil, nil
	}
	if err != nil {
		writeError(w, err, "open stream")
		return nil, nil
	}

	view := newResultsView(h.ledger, poll, queryIdentity(r, h.cfg.IdentitySalt), r.URL.Query().Get("secret"))
	return sub, &streamCursor{view: view}
}

// streamCursor tracks what one stream has already sent.
type streamCursor struct {
	view *resultsView
	last []byte
}

// next renders t for the reader. While results are hidden from them, a
// payload equal to the previous one is skipped so the number of events
// does not track the number of votes.
func (h *StreamHandler) next(ctx context.Context, c *streamCursor, t tally.Tally) ([]byte, bool, error) {
	resp, err := c.view.render(ctx, t, h.ledger.Polls().Now())
	if err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, false, err
	}
	if !c.view.revealed && bytes.Equal(data, c.last) {
		return nil, false, nil
	}
	c.last = data
	return data, true, nil
}

// SSE handles GET /api/polls/{id}/sse
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub, cursor := h.open(w, r)
	if sub == nil {
		return
	}
	defer sub.Close()

	ctx := r.Context()
	pollID := sub.PollID()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("stream opened", "poll_id", pollID, "transport", "sse", "subscription_id", sub.ID())
	defer slog.Info("stream closed", "poll_id", pollID, "transport", "sse", "subscription_id", sub.ID())

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case t := <-sub.Updates():
			data, ok, err := h.next(ctx, cursor, t)
			if err != nil {
				slog.Error("failed to render stream event", "poll_id", pollID, "error", err)
				return
			}
			if !ok {
				continue
			}
			// The event id is the vote count, so it is only sent to readers who can see results
			if cursor.view.revealed {
				_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", t.Total, data)
			} else {
				_, err = fmt.Fprintf(w, "data: %s\n\n", data)
			}
			if err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// WebSocket handles GET /api/polls/{id}/ws. Each text frame carries the
// same payload as an SSE event. Client frames are ignored.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	sub, cursor := h.open(w, r)
	if sub == nil {
		return
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Info("websocket accept failed", "poll_id", sub.PollID(), "error", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead drains control frames and cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())
	pollID := sub.PollID()

	slog.Info("stream opened", "poll_id", pollID, "transport", "ws", "subscription_id", sub.ID())
	defer slog.Info("stream closed", "poll_id", pollID, "transport", "ws", "subscription_id", sub.ID())

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			conn.Close(websocket.StatusGoingAway, "stream ended")
			return
		case t := <-sub.Updates():
			data, ok, err := h.next(ctx, cursor, t)
			if err != nil {
				slog.Error("failed to render stream event", "poll_id", pollID, "error", err)
				conn.Close(websocket.StatusInternalError, "render failed")
				return
			}
			if !ok {
				continue
			}
			if err := h.write(ctx, conn, data); err != nil {
				slog.Info("websocket write failed", "poll_id", pollID, "close_status", websocket.CloseStatus(err), "error", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(parent context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(parent, h.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// originPatterns turns allowed origins into the host patterns
// websocket.Accept matches cross-origin requests against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
