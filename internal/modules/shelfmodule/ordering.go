package shelfmodule

import "errors"

// OrderGap is the spacing between consecutive custom-order keys. Inserts
// between neighbors bisect the interval, so a fresh gap survives roughly
// 50 consecutive midpoint inserts before the float64 mantissa runs out.
const OrderGap = 100000

var (
	// ErrNoMove signals a drop onto the album's current position.
	ErrNoMove = errors.New("album already at target position")

	// ErrPrecisionExhausted signals that neighboring order keys are too
	// close to bisect. The shelf needs renumbering before the move can
	// be retried.
	ErrPrecisionExhausted = errors.New("custom order precision exhausted")

	// ErrReorderNotEligible signals a move attempted against a view whose
	// positions do not correspond to stored order keys.
	ErrReorderNotEligible = errors.New("view is not eligible for reordering")
)

// IsReorderEligible reports whether drag reordering is meaningful for the
// given view parameters. Reordering only makes sense against the custom
// sort with no grouping, no search and neutral filters; any other view is
// a derived projection whose positions do not correspond to stored keys.
func IsReorderEligible(params ViewParams) bool {
	return params.SortBy == SortCustom &&
		params.GroupBy == GroupNone &&
		params.Search == "" &&
		params.Filters.neutral()
}

// ComputeOrder returns the custom-order key an album acquires when moved
// to targetIndex within ordered, the current full shelf in effective
// custom order. The moved album may or may not be present in ordered; if
// present its own slot is skipped when picking neighbors.
//
// Head placement extends below the first key by OrderGap, tail placement
// above the last, and interior placement bisects the two neighbors.
// ErrPrecisionExhausted is returned when the midpoint collides with a
// neighbor; callers renumber and retry.
func ComputeOrder(ordered []Album, movedID string, targetIndex int) (float64, error) {
	// Neighbor positions are computed against the shelf without the
	// moved album, matching what the user sees mid-drag.
	keys := make([]float64, 0, len(ordered))
	movedAt := -1
	for i := range ordered {
		if ordered[i].ID == movedID {
			movedAt = i
			continue
		}
		keys = append(keys, ordered[i].EffectiveOrder())
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(keys) {
		targetIndex = len(keys)
	}
	if movedAt >= 0 && movedAt == targetIndex {
		return 0, ErrNoMove
	}

	switch {
	case len(keys) == 0:
		return 0, nil
	case targetIndex == 0:
		return keys[0] - OrderGap, nil
	case targetIndex == len(keys):
		return keys[len(keys)-1] + OrderGap, nil
	default:
		prev, next := keys[targetIndex-1], keys[targetIndex]
		mid := prev + (next-prev)/2
		if mid == prev || mid == next {
			return 0, ErrPrecisionExhausted
		}
		return mid, nil
	}
}

// RenumberKeys assigns fresh keys at integer multiples of OrderGap to the
// given shelf order: 0, OrderGap, 2*OrderGap, and so on. Relative order
// is preserved exactly.
func RenumberKeys(count int) []float64 {
	keys := make([]float64, count)
	for i := range keys {
		keys[i] = float64(i) * OrderGap
	}
	return keys
}
