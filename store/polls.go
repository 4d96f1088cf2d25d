// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/quickpoll/auth"
	"github.com/danielhkuo/quickpoll/clock"
	"github.com/danielhkuo/quickpoll/models"
)

// PollLimits bounds the lifetime a creator may request.
type PollLimits struct {
	DefaultHours int
	MaxHours     int
}

// DefaultPollLimits mirrors the defaults in cliparse.
var DefaultPollLimits = PollLimits{DefaultHours: 24, MaxHours: 720}

// NewPoll is the validated input of Create.
type NewPoll struct {
	Question             string
	Options              []string
	Hours                int
	HideResultsUntilVote bool
}

// PollStore owns poll and option records. Polls are immutable after creation.
type PollStore struct {
	db     *sql.DB
	clock  clock.Clock
	limits PollLimits
}

func NewPollStore(db *sql.DB, clk clock.Clock, limits PollLimits) *PollStore {
	if clk == nil {
		clk = clock.System{}
	}
	if limits.DefaultHours <= 0 {
		limits.DefaultHours = DefaultPollLimits.DefaultHours
	}
	if limits.MaxHours <= 0 {
		limits.MaxHours = DefaultPollLimits.MaxHours
	}
	if limits.DefaultHours > limits.MaxHours {
		limits.DefaultHours = limits.MaxHours
	}
	return &PollStore{db: db, clock: clk, limits: limits}
}

// Create validates and persists a poll with its options in one transaction.
func (s *PollStore) Create(ctx context.Context, in NewPoll) (models.Poll, error) {
	question, options, hours, err := s.validate(in)
	if err != nil {
		return models.Poll{}, err
	}

	pollID, err := auth.GeneratePollID()
	if err != nil {
		return models.Poll{}, err
	}

	// Postgres keeps microseconds; truncate so the returned poll matches what is stored
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	poll := models.Poll{
		ID:        pollID,
		Question:  question,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(hours) * time.Hour),
	}
	if in.HideResultsUntilVote {
		poll.HideUntilVoteSecret = auth.GenerateSecret()
	}

	for i, text := range options {
		optionID, err := auth.GenerateID(8)
		if err != nil {
			return models.Poll{}, err
		}
		poll.Options = append(poll.Options, models.Option{
			ID:       optionID,
			PollID:   pollID,
			Position: i,
			Text:     text,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var secret sql.NullString
	if poll.HideUntilVoteSecret != "" {
		secret = sql.NullString{String: poll.HideUntilVoteSecret, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, created_at, expires_at, hide_until_vote_secret)
		VALUES ($1, $2, $3, $4, $5)
	`, poll.ID, poll.Question, poll.CreatedAt, poll.ExpiresAt, secret)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	for _, opt := range poll.Options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (id, poll_id, position, text)
			VALUES ($1, $2, $3, $4)
		`, opt.ID, opt.PollID, opt.Position, opt.Text)
		if err != nil {
			return models.Poll{}, fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to commit poll: %w", err)
	}

	slog.Debug("poll stored", "poll_id", poll.ID, "options", len(poll.Options), "hours", hours)
	return poll, nil
}

// Get loads a poll with its options in creation order.
func (s *PollStore) Get(ctx context.Context, id string) (models.Poll, error) {
	if id == "" {
		return models.Poll{}, ErrPollNotFound
	}

	var poll models.Poll
	var secret sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question, created_at, expires_at, hide_until_vote_secret
		FROM poll
		WHERE id = $1
	`, id).Scan(&poll.ID, &poll.Question, &poll.CreatedAt, &poll.ExpiresAt, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, ErrPollNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	poll.CreatedAt = poll.CreatedAt.UTC()
	poll.ExpiresAt = poll.ExpiresAt.UTC()
	poll.HideUntilVoteSecret = secret.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, position, text
		FROM poll_option
		WHERE poll_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Position, &opt.Text); err != nil {
			return models.Poll{}, fmt.Errorf("failed to scan option: %w", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to read options: %w", err)
	}

	return poll, nil
}

// Now exposes the store's clock so callers judge expiry with the same time source.
func (s *PollStore) Now() time.Time {
	return s.clock.Now()
}

func (s *PollStore) validate(in NewPoll) (string, []string, int, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return "", nil, 0, fmt.Errorf("%w: question is required", ErrValidation)
	}
	if utf8.RuneCountInString(question) > models.MaxQuestionLength {
		return "", nil, 0, fmt.Errorf("%w: question must be at most %d characters", ErrValidation, models.MaxQuestionLength)
	}

	if len(in.Options) < models.MinOptions || len(in.Options) > models.MaxOptions {
		return "", nil, 0, fmt.Errorf("%w: poll must have %d-%d options", ErrValidation, models.MinOptions, models.MaxOptions)
	}
	options := make([]string, len(in.Options))
	for i, raw := range in.Options {
		text := strings.TrimSpace(raw)
		if text == "" {
			return "", nil, 0, fmt.Errorf("%w: option %d is empty", ErrValidation, i+1)
		}
		if utf8.RuneCountInString(text) > models.MaxOptionLength {
			return "", nil, 0, fmt.Errorf("%w: option %d must be at most %d characters", ErrValidation, i+1, models.MaxOptionLength)
		}
		options[i] = text
	}

	hours := in.Hours
	if hours == 0 {
		hours = s.limits.DefaultHours
	}
	if hours < 0 || hours > s.limits.MaxHours {
		return "", nil, 0, fmt.Errorf("%w: hours must be between 1 and %d", ErrValidation, s.limits.MaxHours)
	}

	return question, options, hours, nil
}
