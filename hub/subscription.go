// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"sync"

	"github.com/danielhkuo/quickpoll/tally"
)

// Subscription is one live result stream for a poll.
//
// The updates channel is never closed by the hub, so a concurrent
// Publish cannot panic; consumers select on Done to learn that the
// subscription ended (unsubscribed, dropped for being slow, or hub
// shutdown).
type Subscription struct {
	id     string
	pollID string
	hub    *Hub

	updates chan tally.Tally
	done    chan struct{}
	once    sync.Once

	// Guarded by hub.mu
	last int
}

func (s *Subscription) ID() string     { return s.id }
func (s *Subscription) PollID() string { return s.pollID }

// Updates delivers the initial snapshot followed by one tally per accepted vote.
func (s *Subscription) Updates() <-chan tally.Tally { return s.updates }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close deregisters the subscription. Safe to call more than once and
// after the hub already dropped it.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	if s.hub != nil {
		s.hub.Unsubscribe(s)
		return
	}
	s.finish()
}

func (s *Subscription) finish() {
	s.once.Do(func() {
		close(s.done)
	})
}
