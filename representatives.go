package topictree

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Nearest returns up to topN of indices ordered by Euclidean distance to
// centroid, closest first. Equal distances keep their order in indices.
func Nearest(vectors [][]float64, indices []int, centroid []float64, topN int) []int {
	type candidate struct {
		index int
		dist  float64
	}

	candidates := make([]candidate, len(indices))
	for i, idx := range indices {
		candidates[i] = candidate{index: idx, dist: floats.Distance(vectors[idx], centroid, 2)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	n := min(topN, len(candidates))
	nearest := make([]int, n)
	for i := range nearest {
		nearest[i] = candidates[i].index
	}
	return nearest
}
