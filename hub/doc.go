// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub fans tally updates out to live result streams.

Each subscription owns a bounded queue. Publish is non-blocking: when a
queue is full the subscriber is dropped and must reconnect, so a slow
browser can never hold up voting.

	sub, err := h.Subscribe(pollID, snapshot)
	defer sub.Close()
	for {
		select {
		case t := <-sub.Updates():
			// write t
		case <-sub.Done():
			return
		}
	}

Per-poll tables are removed when their last subscriber leaves, so
subscribe/unsubscribe churn does not leak.
*/
package hub
