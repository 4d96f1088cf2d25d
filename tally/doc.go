// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally aggregates votes into per-option counts.

The Engine caches one Tally per poll. The first Snapshot for a poll loads
its options and grouped counts from storage; every accepted vote then
calls Record exactly once, so fan-out never rescans the vote table.

	t, err := engine.Snapshot(ctx, pollID)
	t, err = engine.Record(pollID, optionID)

Record must be serialized per poll by the caller (the vote ledger does
this) for pushes to come out in acceptance order.

Insight derives cosmetic commentary from a snapshot:

	msg := tally.Insight(t) // "" when there is nothing to say

The engine always returns the true tally; hiding results is the HTTP
layer's decision.
*/
package tally
