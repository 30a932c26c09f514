package detection

import "sort"

// Dedupe merges conflicting detections into single union detections.
//
// Each round sorts the candidates by (top, left) descending and merges
// adjacent conflicting pairs, then re-sorts by (left, top) descending and
// sweeps again. A single sort order can place genuinely conflicting
// rectangles non-adjacently, which is why the sweep runs on both axes.
// Rounds repeat until one completes without merging anything, so re-running
// Dedupe on its own output changes nothing. The adjacent sweep is an
// O(n log n) approximation: in pathological layouts a conflicting pair can
// stay non-adjacent under both sort orders and survive.
//
// Arguments:
//   - dets: The candidate detections, in any order.
//
// Returns:
//   - A new slice with all adjacent conflicts merged. The input is not
//     modified.
func Dedupe(dets []Detection) []Detection {
	out := make([]Detection, len(dets))
	copy(out, dets)

	for {
		var c1, c2 bool
		out, c1 = sweep(out, byTopLeft)
		out, c2 = sweep(out, byLeftTop)
		if !c1 && !c2 {
			return out
		}
	}
}

// sweep sorts the detections with the given comparator and merges adjacent
// conflicting pairs into a freshly built slice, advancing only when the
// current pair does not conflict.
func sweep(dets []Detection, less func(a, b Detection) bool) ([]Detection, bool) {
	sort.SliceStable(dets, func(i, j int) bool { return less(dets[i], dets[j]) })

	merged := make([]Detection, 0, len(dets))
	changed := false
	for _, d := range dets {
		if n := len(merged); n > 0 && merged[n-1].Conflicts(d) {
			merged[n-1] = Merge(merged[n-1], d)
			changed = true
			continue
		}
		merged = append(merged, d)
	}
	return merged, changed
}

func byTopLeft(a, b Detection) bool {
	if a.Box.Min.Y != b.Box.Min.Y {
		return a.Box.Min.Y > b.Box.Min.Y
	}
	return a.Box.Min.X > b.Box.Min.X
}

func byLeftTop(a, b Detection) bool {
	if a.Box.Min.X != b.Box.Min.X {
		return a.Box.Min.X > b.Box.Min.X
	}
	return a.Box.Min.Y > b.Box.Min.Y
}
