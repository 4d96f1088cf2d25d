// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package ledger is the single write path for votes.
//
// Cast checks the poll, its expiry and the voter's prior vote, inserts
// the vote, bumps the in-memory tally and publishes it to the hub, all
// under a per-poll lock. The vote table's UNIQUE (poll_id,
// voter_identity) constraint backs the lock, so a second process sharing
// the database still cannot record two votes for one voter. The
// in-memory tally, however, assumes a single server process.
package ledger
