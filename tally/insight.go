// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import "sort"

// Below this many votes no commentary is offered
const insightMinVotes = 20

// Insight returns a short commentary on the race, or "" when there is
// nothing worth saying. Ties for the lead go to the earlier option.
func Insight(t Tally) string {
	if t.Total < insightMinVotes || len(t.Options) == 0 {
		return ""
	}

	ranked := append([]OptionCount(nil), t.Options...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})

	top := ranked[0]
	total := float64(t.Total)

	if float64(top.Votes)/total >= 0.6 {
		return "Clear favorite emerging: " + top.Text
	}

	if len(ranked) > 1 {
		lead := float64(top.Votes-ranked[1].Votes) / total
		if lead >= 0.1 {
			return top.Text + " holds a comfortable lead."
		}
		if lead <= 0.05 {
			return "It's a close race!"
		}
	}

	return ""
}
