// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielhkuo/quickpoll/models"
)

var (
	ErrNotLoaded     = errors.New("tally not loaded")
	ErrUnknownOption = errors.New("option not in tally")
)

// OptionCount is one row of a tally, in poll option order.
type OptionCount struct {
	ID    string
	Text  string
	Votes int
}

// Tally is the derived vote count of a poll. Total always equals the sum
// of Votes and only grows, so it doubles as the poll's push sequence.
type Tally struct {
	PollID  string
	Options []OptionCount
	Total   int
}

// Count returns the votes for an option, 0 if unknown.
func (t Tally) Count(optionID string) int {
	for _, o := range t.Options {
		if o.ID == optionID {
			return o.Votes
		}
	}
	return 0
}

func (t Tally) clone() Tally {
	out := t
	out.Options = append([]OptionCount(nil), t.Options...)
	return out
}

// PollSource loads poll definitions and supplies the time expiry is
// judged against.
type PollSource interface {
	Get(ctx context.Context, id string) (models.Poll, error)
	Now() time.Time
}

// CountSource loads grouped vote counts.
type CountSource interface {
	CountByOption(ctx context.Context, pollID string) (map[string]int, error)
}

type entry struct {
	tally     Tally
	index     map[string]int // option id -> position in tally.Options
	expiresAt time.Time
}

const (
	// DefaultEvictAfter is how long past expiry a tally stays cached.
	DefaultEvictAfter = time.Hour
	sweepInterval     = time.Minute
)

// Engine keeps an incrementally maintained tally per poll. A poll is
// loaded from storage on first access; after that Record is the only
// writer. Tallies of polls expired longer than evictAfter are dropped
// on access and reloaded if read again.
type Engine struct {
	polls PollSource
	votes CountSource

	evictAfter time.Duration

	mu        sync.Mutex
	tallies   map[string]*entry
	lastSweep time.Time
}

func NewEngine(polls PollSource, votes CountSource) *Engine {
	return &Engine{
		polls:      polls,
		votes:      votes,
		evictAfter: DefaultEvictAfter,
		tallies:    make(map[string]*entry),
	}
}

// Snapshot returns a copy of the poll's current tally, loading it if needed.
func (e *Engine) Snapshot(ctx context.Context, pollID string) (Tally, error) {
	e.mu.Lock()
	e.sweep(e.polls.Now())
	if en, ok := e.tallies[pollID]; ok {
		t := en.tally.clone()
		e.mu.Unlock()
		return t, nil
	}
	e.mu.Unlock()

	loaded, err := e.load(ctx, pollID)
	if err != nil {
		return Tally{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Another caller may have loaded it meanwhile; keep the first.
	en, ok := e.tallies[pollID]
	if !ok {
		en = loaded
		e.tallies[pollID] = en
	}
	return en.tally.clone(), nil
}

// Record counts one accepted vote and returns the new tally.
// The poll must have been loaded by Snapshot.
func (e *Engine) Record(pollID, optionID string) (Tally, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	en, ok := e.tallies[pollID]
	if !ok {
		return Tally{}, fmt.Errorf("%w: %s", ErrNotLoaded, pollID)
	}
	i, ok := en.index[optionID]
	if !ok {
		return Tally{}, fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
	}
	en.tally.Options[i].Votes++
	en.tally.Total++
	return en.tally.clone(), nil
}

// Loaded reports how many polls have a cached tally.
func (e *Engine) Loaded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tallies)
}

// sweep drops long-expired tallies, at most once per sweepInterval.
// e.mu must be held.
func (e *Engine) sweep(now time.Time) {
	if !e.lastSweep.IsZero() && now.Sub(e.lastSweep) < sweepInterval {
		return
	}
	e.lastSweep = now
	for id, en := range e.tallies {
		if now.After(en.expiresAt.Add(e.evictAfter)) {
			delete(e.tallies, id)
		}
	}
}

func (e *Engine) load(ctx context.Context, pollID string) (*entry, error) {
	poll, err := e.polls.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counts, err := e.votes.CountByOption(ctx, pollID)
	if err != nil {
		return nil, err
	}

	en := &entry{
		tally:     Tally{PollID: pollID, Options: make([]OptionCount, len(poll.Options))},
		index:     make(map[string]int, len(poll.Options)),
		expiresAt: poll.ExpiresAt,
	}
	for i, opt := range poll.Options {
		n := counts[opt.ID]
		en.tally.Options[i] = OptionCount{ID: opt.ID, Text: opt.Text, Votes: n}
		en.tally.Total += n
		en.index[opt.ID] = i
	}
	return en, nil
}
