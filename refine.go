package topictree

import (
	"fmt"
	"log"
	"sort"
)

// SubAssignment is the re-clustering of one top-level cluster
type SubAssignment struct {
	ParentID   int
	Assignment *ClusterAssignment
}

// Refine re-clusters the targetParents largest clusters of a into subK
// sub-clusters each. Only dominant clusters are refined so the tree stays
// small. Equal sizes go to the smaller cluster id.
func Refine(vectors [][]float64, a *ClusterAssignment, targetParents, subK int, seed int64) ([]SubAssignment, error) {
	sizes := a.Sizes()
	order := make([]int, a.K)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sizes[order[i]] > sizes[order[j]]
	})

	parents := order[:min(targetParents, len(order))]

	subs := make([]SubAssignment, 0, len(parents))
	for _, parent := range parents {
		members := a.Members(parent)
		log.Printf("🌳 Refining cluster %d (%d members) into %d sub-clusters", parent, len(members), subK)

		sub, err := NewKMeans(subK, seed).Fit(vectors, members)
		if err != nil {
			return nil, fmt.Errorf("failed to refine cluster %d: %w", parent, err)
		}
		subs = append(subs, SubAssignment{ParentID: parent, Assignment: sub})
	}

	return subs, nil
}
