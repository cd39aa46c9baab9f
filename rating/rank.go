package rating

import (
	"cmp"
	"slices"
)

// compareContestants is the standings order: score descending, then
// cumulative time, then tiebreaker, then user ID. The last key makes the
// order total, so every run of the engine sees the same input order; two
// contestants share a rank only when they collide on all four keys.
func compareContestants(a, b *Contestant) int {
	if c := b.Score.Cmp(a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Cumtime, b.Cumtime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tiebreaker, b.Tiebreaker); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}

// Order sorts contestants into standings order in place. The sort is
// stable so that inputs which collide on all four keys (the same user
// shown twice on a virtual-inclusive scoreboard) keep their incoming
// order.
func Order(contestants []*Contestant) {
	slices.SortStableFunc(contestants, compareContestants)
}
