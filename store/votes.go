// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickpoll/models"
)

// VoteStore persists vote records. Votes are never updated or deleted.
type VoteStore struct {
	db *sql.DB
}

func NewVoteStore(db *sql.DB) *VoteStore {
	return &VoteStore{db: db}
}

// Insert writes the vote unless the voter already has one for the poll.
// It reports whether a row was written; the (poll_id, voter_identity)
// unique constraint makes the check-and-insert a single statement.
func (s *VoteStore) Insert(ctx context.Context, v models.Vote) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vote (id, poll_id, option_id, voter_identity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, voter_identity) DO NOTHING
	`, v.ID, v.PollID, v.OptionID, v.VoterIdentity, v.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// Find returns the vote cast by identity on a poll.
func (s *VoteStore) Find(ctx context.Context, pollID, identity string) (models.Vote, error) {
	var v models.Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, poll_id, option_id, voter_identity, created_at
		FROM vote
		WHERE poll_id = $1 AND voter_identity = $2
	`, pollID, identity).Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterIdentity, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, ErrVoteNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to query vote: %w", err)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// CountByOption returns option_id -> votes. Options without votes are absent.
func (s *VoteStore) CountByOption(ctx context.Context, pollID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT option_id, COUNT(*)
		FROM vote
		WHERE poll_id = $1
		GROUP BY option_id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var optionID string
		var n int
		if err := rows.Scan(&optionID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[optionID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vote counts: %w", err)
	}
	return counts, nil
}

// Count returns the number of votes recorded for a poll.
func (s *VoteStore) Count(ctx context.Context, pollID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote WHERE poll_id = $1`, pollID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
