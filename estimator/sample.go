package estimator

import "sort"

// ComputeSampleDates returns the night indices to query live. Ranges of at
// most maxQueries nights are queried in full; longer ranges are stepped
// through at ceil(total/maxQueries) and always include the first and last
// night.
func ComputeSampleDates(total, maxQueries int) []int {
	if total <= 0 {
		return []int{}
	}
	if maxQueries <= 0 || total <= maxQueries {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}

	step := (total + maxQueries - 1) / maxQueries
	seen := map[int]bool{0: true, total - 1: true}
	for i := 0; i < total; i += step {
		seen[i] = true
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// sampleIndices applies the sampling threshold: short ranges query every
// night, longer ones are sampled.
func sampleIndices(total, threshold, maxQueries int) []int {
	if total <= threshold {
		return ComputeSampleDates(total, total)
	}
	return ComputeSampleDates(total, maxQueries)
}
