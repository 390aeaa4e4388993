package search

import "sort"

// Result is the per-query search outcome (spec.md §3, §6).
type Result struct {
	KBounds        KBounds
	NoPath         bool
	TotalScore     float64 // log marginal, log_sum_exp of per-kset totals
	Events         []*RecoEvent
	BoundaryError  bool
	BetterKBounds  KBounds
	CouldNotExpand bool
}

// sortEventsDescending sorts events ascending by score then reverses, per
// spec.md §4.3 step 8 ("Under Viterbi, sort events ascending by score then
// reverse"); the net effect is a descending sort, which is what invariant 6
// in spec.md §8 requires. Events with equal scores end up in the reverse of
// their input order.
func sortEventsDescending(events []*RecoEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Score < events[j].Score })
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}

// checkBoundaries implements spec.md §4.3 step 9: detect whether the best
// kset sits on the edge of kbounds along either axis (suppressed when that
// axis's width is too narrow to distinguish "edge" from "everywhere"), and
// if so propose a one-step-wider KBounds.
func checkBoundaries(best KSet, bounds KBounds) (boundaryError bool, better KBounds, couldNotExpand bool) {
	better = bounds

	suppressV := bounds.VWidth() <= 1
	suppressD := bounds.DWidth() <= 2

	vAtEdge := !suppressV && (best.V == bounds.VMin || best.V == bounds.VMax-1)
	dAtEdge := !suppressD && (best.D == bounds.DMin || best.D == bounds.DMax-1)

	if vAtEdge {
		if best.V == bounds.VMin {
			better.VMin = widenMin(bounds.VMin)
		}
		if best.V == bounds.VMax-1 {
			better.VMax = bounds.VMax + 1
		}
	}
	if dAtEdge {
		if best.D == bounds.DMin {
			better.DMin = widenMin(bounds.DMin)
		}
		if best.D == bounds.DMax-1 {
			better.DMax = bounds.DMax + 1
		}
	}

	boundaryError = vAtEdge || dAtEdge
	couldNotExpand = boundaryError && better == bounds
	return boundaryError, better, couldNotExpand
}

// widenMin decrements a minimum bound by one, floored at 1 (spec.md §4.3:
// "floor at 1 for the min side").
func widenMin(min int) int {
	if min <= 1 {
		return 1
	}
	return min - 1
}
