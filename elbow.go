package topictree

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
)

// ElbowResult holds the inertia curve over the candidate cluster counts and the
// assignment for the chosen K
type ElbowResult struct {
	Ks         []int
	Inertias   []float64
	ChosenK    int
	Assignment *ClusterAssignment
}

// ElbowSearch fits k-means for every K in ks and chooses the elbow of the
// inertia curve. ks must be ascending.
func ElbowSearch(vectors [][]float64, ks []int, seed int64) (*ElbowResult, error) {
	if len(ks) == 0 {
		return nil, ErrEmptyRange
	}
	for i, k := range ks {
		if k < 1 {
			return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrConfiguration, k)
		}
		if i > 0 && k <= ks[i-1] {
			return nil, fmt.Errorf("%w: k range must be ascending, got %v", ErrConfiguration, ks)
		}
	}

	log.Printf("🔍 Evaluating K from %d to %d clusters over %d vectors...", ks[0], ks[len(ks)-1], len(vectors))

	if len(vectors) < ks[0] {
		return nil, fmt.Errorf("failed to cluster with k=%d: %w: %d points", ks[0], ErrTooFewPoints, len(vectors))
	}
	data, err := denseRows(vectors, nil)
	if err != nil {
		return nil, err
	}

	// Every fit reads the same matrix; at most one fit per CPU runs at a time
	assignments := make([]*ClusterAssignment, len(ks))
	errs := make([]error, len(ks))
	sem := make(chan struct{}, min(runtime.GOMAXPROCS(0), len(ks)))
	var wg sync.WaitGroup
	for i, k := range ks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i, k int) {
			defer wg.Done()
			assignments[i], errs[i] = NewKMeans(k, seed).FitMatrix(data, nil)
			<-sem
		}(i, k)
	}
	wg.Wait()

	inertias := make([]float64, len(ks))
	for i, k := range ks {
		if errs[i] != nil {
			return nil, fmt.Errorf("failed to cluster with k=%d: %w", k, errs[i])
		}
		inertias[i] = assignments[i].Inertia
		log.Printf("  K=%d: inertia=%.4f", k, inertias[i])
	}

	chosen := chooseKByDistance(ks, inertias)
	log.Printf("🎯 Selected K=%d at the elbow of the inertia curve", ks[chosen])

	return &ElbowResult{
		Ks:         ks,
		Inertias:   inertias,
		ChosenK:    ks[chosen],
		Assignment: assignments[chosen],
	}, nil
}

// chooseKByDistance returns the position of the point farthest from the chord
// between the first and last points of the curve. The first maximum wins.
func chooseKByDistance(ks []int, inertias []float64) int {
	distances := elbowDistances(ks, inertias)
	best := 0
	for i, d := range distances {
		if d > distances[best] {
			best = i
		}
	}
	return best
}

// elbowDistances is the perpendicular distance of every (K, inertia) point to
// the chord. A degenerate chord gives zero for every point.
func elbowDistances(ks []int, inertias []float64) []float64 {
	n := len(ks)
	x1, y1 := float64(ks[0]), inertias[0]
	x2, y2 := float64(ks[n-1]), inertias[n-1]
	dx, dy := x2-x1, y2-y1

	denominator := math.Sqrt(dy*dy + dx*dx)
	distances := make([]float64, n)
	if denominator == 0 {
		return distances
	}
	for i := range ks {
		x0, y0 := float64(ks[i]), inertias[i]
		distances[i] = math.Abs(dy*x0-dx*y0+x2*y1-y2*x1) / denominator
	}
	return distances
}
