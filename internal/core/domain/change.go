// internal/core/domain/change.go
package domain

import "sort"

// Breakdown splits a non-negative change amount into a count per denomination
// using a greedy strategy: largest denomination first, as many as fit, then
// the next. For canonical currency systems the counts sum exactly to change;
// for non-canonical denomination sets the result is the best-effort greedy
// breakdown and is not guaranteed to be minimal or complete.
func Breakdown(change int64, denominations []int64) map[int64]int64 {
	sorted := make([]int64, 0, len(denominations))
	for _, d := range denominations {
		if d > 0 {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	result := make(map[int64]int64)
	remaining := change
	for _, d := range sorted {
		if remaining <= 0 {
			break
		}
		if count := remaining / d; count > 0 {
			result[d] = count
			remaining -= count * d
		}
	}
	return result
}
