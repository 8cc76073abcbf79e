// Package subsetsum implements the bounded subset-sum search used by
// FNB split detection (spec §4.8): given candidate amounts (in
// integer cents) and a target window, find a subset of size 2..N_max
// whose sum lies in the window. A greedy O(n^2) pass handles the
// common two-item case; a pruned, window-bounded dynamic program
// handles n>=3, returning the first feasible combination under a
// deterministic insertion order so results are reproducible.
package subsetsum

// Item is one candidate amount available to the subset-sum search.
type Item struct {
	AmountCents int64
	RowID       int64
}

// Window computes [min_sum, max_sum] in cents for a target amount in
// cents and a fractional tolerance, with a floor of 1 cent so a
// zero-tolerance target still admits an exact match.
func Window(targetCents int64, tolerance float64) (minSum, maxSum int64) {
	lo := float64(targetCents) * (1 - tolerance)
	hi := float64(targetCents) * (1 + tolerance)
	minSum = int64(lo)
	maxSum = int64(hi)
	if hi-float64(maxSum) > 0 {
		maxSum++
	}
	if minSum < 1 {
		minSum = 1
	}
	if maxSum < minSum {
		maxSum = minSum
	}
	return minSum, maxSum
}

// Find searches items in order for a subset of size 2..maxComponents
// whose sum lies in [minSum, maxSum]. It returns the items chosen (in
// the order they were found, i.e. input order) and true, or nil/false
// if no feasible subset exists within the bound.
func Find(items []Item, minSum, maxSum int64, maxComponents int) ([]Item, bool) {
	if maxComponents < 2 {
		maxComponents = 2
	}

	if pair, ok := findPairFastPath(items, minSum, maxSum); ok {
		return pair, true
	}

	idx, ok := findByDP(items, minSum, maxSum, maxComponents)
	if !ok {
		return nil, false
	}
	out := make([]Item, len(idx))
	for i, id := range idx {
		out[i] = items[id]
	}
	return out, true
}

// findPairFastPath is the greedy n=2 path: a double loop returning the
// first pair (in i<j input order) whose sum lies in the window.
func findPairFastPath(items []Item, minSum, maxSum int64) ([]Item, bool) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sum := items[i].AmountCents + items[j].AmountCents
			if sum >= minSum && sum <= maxSum {
				return []Item{items[i], items[j]}, true
			}
		}
	}
	return nil, false
}

type dpState struct {
	sum int64
	idx []int
}

// findByDP runs the sparse, window-pruned dynamic program described
// in spec §4.8: state is keyed on the partial sum actually reached
// (never the full combinatorial space), and a feasible state of size
// >= 2 returns immediately.
func findByDP(items []Item, minSum, maxSum int64, maxComponents int) ([]int, bool) {
	states := []dpState{{sum: 0, idx: nil}}
	seen := map[int64]bool{0: true}

	for i, it := range items {
		snapshot := states
		for _, s := range snapshot {
			if len(s.idx) >= maxComponents {
				continue
			}
			newSum := s.sum + it.AmountCents
			if newSum > maxSum {
				continue
			}
			newIdx := make([]int, len(s.idx)+1)
			copy(newIdx, s.idx)
			newIdx[len(s.idx)] = i

			if newSum >= minSum && len(newIdx) >= 2 {
				return newIdx, true
			}
			if !seen[newSum] {
				seen[newSum] = true
				states = append(states, dpState{sum: newSum, idx: newIdx})
			}
		}
	}
	return nil, false
}
