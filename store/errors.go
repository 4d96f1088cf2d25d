// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import "errors"

// Errors returned by the poll store and the vote ledger. Callers match
// them with errors.Is; detail is added by wrapping.
var (
	ErrValidation     = errors.New("validation failed")
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")
	ErrVoteNotFound   = errors.New("vote not found")
	ErrPollExpired    = errors.New("poll has expired")
)
