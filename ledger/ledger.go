// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/quickpoll/auth"
	"github.com/danielhkuo/quickpoll/hub"
	"github.com/danielhkuo/quickpoll/metrics"
	"github.com/danielhkuo/quickpoll/models"
	"github.com/danielhkuo/quickpoll/store"
	"github.com/danielhkuo/quickpoll/tally"
)

// Result is the outcome of Cast. Accepted is false when the voter had
// already voted; ExistingOptionID then holds their first choice.
type Result struct {
	Poll             models.Poll
	Accepted         bool
	OptionID         string
	ExistingOptionID string
	Tally            tally.Tally
}

// Ledger accepts votes. Everything that changes a poll's tally, and every
// new subscription to it, runs under that poll's lock, so pushes leave in
// acceptance order and a new subscriber's snapshot is never overtaken.
type Ledger struct {
	polls  *store.PollStore
	votes  *store.VoteStore
	engine *tally.Engine
	hub    *hub.Hub
	locks  *keyedMutex
}

func New(polls *store.PollStore, votes *store.VoteStore, engine *tally.Engine, h *hub.Hub) *Ledger {
	return &Ledger{
		polls:  polls,
		votes:  votes,
		engine: engine,
		hub:    h,
		locks:  newKeyedMutex(),
	}
}

// Cast records identity's vote for optionID. A repeated vote is not an
// error: it returns Accepted=false with the original choice, whatever
// option the retry asked for.
func (l *Ledger) Cast(ctx context.Context, pollID, optionID, identity string) (Result, error) {
	if identity == "" {
		metrics.Votes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Result{}, fmt.Errorf("%w: voter identity is required", store.ErrValidation)
	}
	if optionID == "" {
		metrics.Votes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Result{}, fmt.Errorf("%w: option_id is required", store.ErrValidation)
	}

	unlock := l.locks.Lock(pollID)
	defer unlock()

	poll, err := l.polls.Get(ctx, pollID)
	if err != nil {
		if errors.Is(err, store.ErrPollNotFound) {
			metrics.Votes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		}
		return Result{}, err
	}
	if _, ok := poll.Option(optionID); !ok {
		metrics.Votes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Result{}, fmt.Errorf("%w: %s", store.ErrOptionNotFound, optionID)
	}
	now := l.polls.Now()
	if poll.Expired(now) {
		metrics.Votes.WithLabelValues(metrics.OutcomeExpired).Inc()
		return Result{}, store.ErrPollExpired
	}

	// Load the tally before inserting so Record never counts a vote twice
	// (a fresh load would already include it).
	current, err := l.engine.Snapshot(ctx, pollID)
	if err != nil {
		return Result{}, err
	}

	voteID, err := auth.NewULID(now)
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate vote id: %w", err)
	}
	inserted, err := l.votes.Insert(ctx, models.Vote{
		ID:            voteID,
		PollID:        pollID,
		OptionID:      optionID,
		VoterIdentity: identity,
		CreatedAt:     now,
	})
	if err != nil {
		return Result{}, err
	}

	if !inserted {
		existing, err := l.votes.Find(ctx, pollID, identity)
		if err != nil {
			return Result{}, err
		}
		metrics.Votes.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		slog.Debug("duplicate vote", "poll_id", pollID, "existing_option_id", existing.OptionID)
		return Result{
			Poll:             poll,
			OptionID:         existing.OptionID,
			ExistingOptionID: existing.OptionID,
			Tally:            current,
		}, nil
	}

	updated, err := l.engine.Record(pollID, optionID)
	if err != nil {
		return Result{}, err
	}
	l.hub.Publish(pollID, updated)
	metrics.Votes.WithLabelValues(metrics.OutcomeAccepted).Inc()

	return Result{
		Poll:     poll,
		Accepted: true,
		OptionID: optionID,
		Tally:    updated,
	}, nil
}

// HasVoted reports the option identity chose on the poll, if any.
func (l *Ledger) HasVoted(ctx context.Context, pollID, identity string) (string, bool, error) {
	if identity == "" {
		return "", false, nil
	}
	v, err := l.votes.Find(ctx, pollID, identity)
	if errors.Is(err, store.ErrVoteNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.OptionID, true, nil
}

// Tally returns the poll's current tally.
func (l *Ledger) Tally(ctx context.Context, pollID string) (tally.Tally, error) {
	return l.engine.Snapshot(ctx, pollID)
}

// Subscribe opens a result stream whose first update is the current
// tally. Taking the poll lock means no accepted vote can slip between
// the snapshot and registration.
func (l *Ledger) Subscribe(ctx context.Context, pollID string) (*hub.Subscription, error) {
	unlock := l.locks.Lock(pollID)
	defer unlock()

	snap, err := l.engine.Snapshot(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return l.hub.Subscribe(pollID, snap)
}

// Polls exposes the poll store the ledger reads from.
func (l *Ledger) Polls() *store.PollStore {
	return l.polls
}
