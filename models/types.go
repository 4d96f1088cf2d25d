package models

import "time"

// Poll limits
const (
	MinOptions        = 2
	MaxOptions        = 4
	MaxQuestionLength = 120
	MaxOptionLength   = 120
)

// Vote response messages
const (
	MessageVoteRecorded = "Vote recorded"
	MessageAlreadyVoted = "Already voted"
)

// Domain types

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// Empty unless results are hidden until the requester votes
	HideUntilVoteSecret string `json:"-"`
}

// Expired reports whether voting has closed at now.
func (p Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// HidesResults reports whether results are gated on having voted.
func (p Poll) HidesResults() bool {
	return p.HideUntilVoteSecret != ""
}

// Option looks up an option by ID.
func (p Poll) Option(id string) (Option, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

type Option struct {
	ID       string `json:"id"`
	PollID   string `json:"-"`
	Position int    `json:"-"`
	Text     string `json:"text"`
}

type Vote struct {
	ID            string    `json:"id"`
	PollID        string    `json:"poll_id"`
	OptionID      string    `json:"option_id"`
	VoterIdentity string    `json:"-"` // Never expose in JSON
	CreatedAt     time.Time `json:"created_at"`
}

// Request types

type OptionInput struct {
	Text string `json:"text"`
}

type CreatePollRequest struct {
	Question             string        `json:"question"`
	Options              []OptionInput `json:"options"`
	Hours                int           `json:"hours"`
	HideResultsUntilVote bool          `json:"hide_results_until_vote"`
}

// Exactly one of Fingerprint or IdempotencyKey identifies the voter.
// Fingerprint wins when both are present.
type VoteRequest struct {
	OptionID       string `json:"option_id"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Response types

type PollResponse struct {
	ID                   string    `json:"id"`
	Question             string    `json:"question"`
	Options              []Option  `json:"options"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	ExpiresIn            string    `json:"expires_in"`
	Expired              bool      `json:"expired"`
	HideResultsUntilVote bool      `json:"hide_results_until_vote"`
	HideUntilVoteSecret  string    `json:"hide_until_vote_secret,omitempty"`
}

type OptionResult struct {
	ID     string `json:"id"`
	Option string `json:"option"`
	Votes  int    `json:"votes"`
}

// ResultsResponse is shared by GET /results, the vote response and every
// pushed SSE/WebSocket event.
type ResultsResponse struct {
	TotalVotes           int            `json:"total_votes"`
	Results              []OptionResult `json:"results"`
	AlreadyVotedOptionID string         `json:"already_voted_option_id,omitempty"`
	Expired              bool           `json:"expired"`
	HiddenUntilVote      bool           `json:"hidden_until_vote,omitempty"`
	Insight              string         `json:"insight,omitempty"`
}

type VoteResponse struct {
	Message  string `json:"message"`
	VotedFor string `json:"voted_for,omitempty"`
	OptionID string `json:"option_id,omitempty"`
	ResultsResponse
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
