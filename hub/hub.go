// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/quickpoll/auth"
	"github.com/danielhkuo/quickpoll/metrics"
	"github.com/danielhkuo/quickpoll/tally"
)

// DefaultQueueSize is the per-subscriber outbound queue length
const DefaultQueueSize = 16

var ErrClosed = errors.New("hub is closed")

// Hub is the registry of live subscriptions per poll. Publish never
// blocks: a subscriber whose queue is full is dropped.
//
// Publish and Subscribe for the same poll must be serialized by the
// caller (the vote ledger's per-poll lock) for pushes to arrive in
// acceptance order with no gap after the initial snapshot.
type Hub struct {
	queueSize int
	seq       atomic.Uint64

	mu     sync.Mutex
	polls  map[string]map[string]*Subscription
	closed bool
}

func New(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize: queueSize,
		polls:     make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a subscription for pollID and queues initial as its
// first update.
func (h *Hub) Subscribe(pollID string, initial tally.Tally) (*Subscription, error) {
	sub := &Subscription{
		id:      h.newID(),
		pollID:  pollID,
		hub:     h,
		updates: make(chan tally.Tally, h.queueSize),
		done:    make(chan struct{}),
		last:    initial.Total,
	}
	sub.updates <- initial

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.finish()
		return nil, ErrClosed
	}
	subs := h.polls[pollID]
	if subs == nil {
		subs = make(map[string]*Subscription)
		h.polls[pollID] = subs
	}
	subs[sub.id] = sub
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	slog.Debug("subscriber joined", "poll_id", pollID, "subscription_id", sub.id)
	return sub, nil
}

// Unsubscribe removes the subscription and ends it.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	removed := h.removeLocked(sub)
	h.mu.Unlock()

	sub.finish()
	if removed {
		slog.Debug("subscriber left", "poll_id", sub.pollID, "subscription_id", sub.id)
	}
}

// Publish queues t to every subscriber of the poll. Subscribers that
// already hold an equal or newer tally are skipped.
func (h *Hub) Publish(pollID string, t tally.Tally) {
	var dropped []*Subscription

	h.mu.Lock()
	for _, sub := range h.polls[pollID] {
		if t.Total <= sub.last {
			continue
		}
		select {
		case sub.updates <- t:
			sub.last = t.Total
			metrics.Pushes.Inc()
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		h.removeLocked(sub)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		sub.finish()
		metrics.SubscribersDropped.Inc()
		slog.Warn("dropped slow subscriber", "poll_id", pollID, "subscription_id", sub.id)
	}
}

// Count returns the number of subscriptions for a poll.
func (h *Hub) Count(pollID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.polls[pollID])
}

// Polls returns how many polls currently have subscribers.
func (h *Hub) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.polls)
}

// Close ends every subscription and refuses new ones.
func (h *Hub) Close() {
	var all []*Subscription

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, subs := range h.polls {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	h.polls = make(map[string]map[string]*Subscription)
	h.mu.Unlock()

	for _, sub := range all {
		sub.finish()
	}
	metrics.Subscribers.Sub(float64(len(all)))
	slog.Info("hub closed", "subscribers", len(all))
}

// removeLocked deletes sub and prunes the poll's table when it empties.
func (h *Hub) removeLocked(sub *Subscription) bool {
	subs := h.polls[sub.pollID]
	if _, ok := subs[sub.id]; !ok {
		return false
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.polls, sub.pollID)
	}
	metrics.Subscribers.Dec()
	return true
}

func (h *Hub) newID() string {
	id, err := auth.NewULID(time.Now())
	if err != nil {
		return "sub-" + strconv.FormatUint(h.seq.Add(1), 10)
	}
	return id
}
