package topictree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefineLargestClusters(t *testing.T) {
	// cluster 0: 4 points, cluster 1: 9 points in three groups, cluster 2: 6 points
	vectors := append(append(
		blobs([][]float64{{50, 50}}, 4),
		blobs([][]float64{{0, 0}, {0, 5}, {5, 0}}, 3)...),
		blobs([][]float64{{-30, 0}, {-30, 8}}, 3)...,
	)
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2}
	a := &ClusterAssignment{K: 3, Indices: seq(len(vectors)), Labels: labels}

	subs, err := Refine(vectors, a, 2, 3, 42)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, 1, subs[0].ParentID)
	assert.Equal(t, 2, subs[1].ParentID)

	for _, sub := range subs {
		assert.Equal(t, 3, sub.Assignment.K)
		assert.Len(t, sub.Assignment.Centroids, 3)

		var members []int
		for c := 0; c < 3; c++ {
			m := sub.Assignment.Members(c)
			assert.NotEmpty(t, m)
			members = append(members, m...)
		}
		assert.ElementsMatch(t, a.Members(sub.ParentID), members)
	}

	// The three groups inside cluster 1 come back as its sub-clusters
	assert.Equal(t, []int{3, 3, 3}, sortedCopy(subs[0].Assignment.Sizes()))
}

func TestRefineTiesGoToSmallerID(t *testing.T) {
	vectors := blobs([][]float64{{0, 0}, {10, 0}, {0, 10}}, 3)
	labels := []int{2, 2, 2, 0, 0, 0, 1, 1, 1}
	a := &ClusterAssignment{K: 3, Indices: seq(len(vectors)), Labels: labels}

	subs, err := Refine(vectors, a, 2, 3, 42)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, 0, subs[0].ParentID)
	assert.Equal(t, 1, subs[1].ParentID)
}

func TestRefineParentTooSmall(t *testing.T) {
	vectors := [][]float64{{0}, {1}, {5}, {6}}
	a := &ClusterAssignment{K: 2, Indices: seq(4), Labels: []int{0, 0, 1, 1}}

	_, err := Refine(vectors, a, 1, 3, 42)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestRefineMoreParentsThanClusters(t *testing.T) {
	vectors := blobs([][]float64{{0, 0}, {4, 4}, {8, 0}}, 2)
	a := &ClusterAssignment{K: 1, Indices: seq(len(vectors)), Labels: make([]int, len(vectors))}

	subs, err := Refine(vectors, a, 2, 3, 42)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
