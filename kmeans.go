package topictree

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ClusterAssignment is the result of fitting k-means over a subset of the
// embedding matrix. Labels[i] is the cluster of document Indices[i].
type ClusterAssignment struct {
	K         int
	Indices   []int
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// Members returns the global document indices assigned to cluster, in fit order
func (a *ClusterAssignment) Members(cluster int) []int {
	var members []int
	for i, label := range a.Labels {
		if label == cluster {
			members = append(members, a.Indices[i])
		}
	}
	return members
}

// Sizes returns the member count of every cluster
func (a *ClusterAssignment) Sizes() []int {
	sizes := make([]int, a.K)
	for _, label := range a.Labels {
		sizes[label]++
	}
	return sizes
}

// KMeans fits seeded k-means with k-means++ initialization. Each of NInit
// trials gets its own seed drawn from Seed; the trial with the lowest inertia
// wins and ties go to the earlier trial, so the outcome does not depend on
// goroutine scheduling.
type KMeans struct {
	K             int
	Seed          int64
	NInit         int
	MaxIterations int
	Tolerance     float64
}

// NewKMeans returns k-means with the default trial count and stopping rule
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{
		K:             k,
		Seed:          seed,
		NInit:         10,
		MaxIterations: 300,
		Tolerance:     1e-4,
	}
}

type kmeansTrial struct {
	assignments []int
	centroids   *mat.Dense
	inertia     float64
}

// Fit clusters the rows of vectors listed in indices. A nil indices fits
// every row.
func (km *KMeans) Fit(vectors [][]float64, indices []int) (*ClusterAssignment, error) {
	if indices == nil {
		indices = make([]int, len(vectors))
		for i := range indices {
			indices[i] = i
		}
	}
	if km.K < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrConfiguration, km.K)
	}
	if len(indices) < km.K {
		return nil, fmt.Errorf("%w: %d points for k=%d", ErrTooFewPoints, len(indices), km.K)
	}

	data, err := denseRows(vectors, indices)
	if err != nil {
		return nil, err
	}
	return km.FitMatrix(data, indices)
}

// denseRows copies the listed rows of vectors into a matrix, one row per
// index. A nil indices copies every row.
func denseRows(vectors [][]float64, indices []int) (*mat.Dense, error) {
	if indices == nil {
		indices = make([]int, len(vectors))
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no points to cluster", ErrTooFewPoints)
	}
	dim := len(vectors[indices[0]])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector %d is empty", ErrConfiguration, indices[0])
	}
	data := mat.NewDense(len(indices), dim, nil)
	for row, idx := range indices {
		if len(vectors[idx]) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ErrConfiguration, idx, len(vectors[idx]), dim)
		}
		data.SetRow(row, vectors[idx])
	}
	return data, nil
}

// FitMatrix clusters the rows of data, which is only read, so one matrix can
// back fits for several K at once. indices names the document behind each
// row; nil means row i is document i.
func (km *KMeans) FitMatrix(data *mat.Dense, indices []int) (*ClusterAssignment, error) {
	n, dim := data.Dims()
	if indices == nil {
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) != n {
		return nil, fmt.Errorf("%w: %d indices for %d rows", ErrConfiguration, len(indices), n)
	}
	if km.K < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", ErrConfiguration, km.K)
	}
	if n < km.K {
		return nil, fmt.Errorf("%w: %d points for k=%d", ErrTooFewPoints, n, km.K)
	}

	nInit := max(km.NInit, 1)
	seeder := rand.New(rand.NewSource(km.Seed))
	seeds := make([]int64, nInit)
	for t := range seeds {
		seeds[t] = seeder.Int63()
	}

	tol := km.Tolerance * meanColumnVariance(data)

	trials := make([]kmeansTrial, nInit)
	var wg sync.WaitGroup
	for t := range nInit {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			trials[t] = km.runTrial(data, rand.New(rand.NewSource(seeds[t])), tol)
		}(t)
	}
	wg.Wait()

	best := 0
	for t := 1; t < nInit; t++ {
		if trials[t].inertia < trials[best].inertia {
			best = t
		}
	}

	winner := trials[best]
	centroids := make([][]float64, km.K)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
		copy(centroids[c], winner.centroids.RawRowView(c))
	}

	fitted := make([]int, len(indices))
	copy(fitted, indices)

	return &ClusterAssignment{
		K:         km.K,
		Indices:   fitted,
		Labels:    winner.assignments,
		Centroids: centroids,
		Inertia:   winner.inertia,
	}, nil
}

func (km *KMeans) runTrial(data *mat.Dense, rng *rand.Rand, tol float64) kmeansTrial {
	centroids := initializeCentroidsKMeansPlusPlus(data, km.K, rng)

	for iteration := 0; iteration < km.MaxIterations; iteration++ {
		assignments := assignPointsToClusters(data, centroids)
		relocateEmptyClusters(data, assignments, centroids)

		newCentroids := updateCentroids(data, assignments, km.K)
		shift := calculateCentroidShift(centroids, newCentroids)
		centroids = newCentroids

		if shift <= tol {
			break
		}
	}

	assignments := assignPointsToClusters(data, centroids)
	relocateEmptyClusters(data, assignments, centroids)
	centroids = updateCentroids(data, assignments, km.K)

	return kmeansTrial{
		assignments: assignments,
		centroids:   centroids,
		inertia:     calculateInertia(data, assignments, centroids),
	}
}

// initializeCentroidsKMeansPlusPlus picks k starting centroids with D² weighting
func initializeCentroidsKMeansPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		totalWeight := 0.0
		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				minDist = math.Min(minDist, squaredDistance(point, centroids.RawRowView(c)))
			}
			distances[j] = minDist
			totalWeight += minDist
		}

		if totalWeight == 0 {
			// All points coincide with chosen centroids
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		cumWeight := 0.0
		chosen := -1
		for j, dist := range distances {
			if dist == 0 {
				continue
			}
			cumWeight += dist
			chosen = j
			if cumWeight >= target {
				break
			}
		}
		centroids.SetRow(i, data.RawRowView(chosen))
	}

	return centroids
}

// assignPointsToClusters assigns each row to its nearest centroid; ties go to
// the lower cluster id
func assignPointsToClusters(data *mat.Dense, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		minDist := math.Inf(1)
		bestCluster := 0

		for j := 0; j < k; j++ {
			dist := squaredDistance(point, centroids.RawRowView(j))
			if dist < minDist {
				minDist = dist
				bestCluster = j
			}
		}

		assignments[i] = bestCluster
	}

	return assignments
}

// relocateEmptyClusters moves the point farthest from its centroid into each
// empty cluster, taking only from clusters with more than one member.
func relocateEmptyClusters(data *mat.Dense, assignments []int, centroids *mat.Dense) {
	k, _ := centroids.Dims()
	counts := make([]int, k)
	for _, c := range assignments {
		counts[c]++
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		farthest := -1
		farthestDist := -1.0
		for i, owner := range assignments {
			if counts[owner] < 2 {
				continue
			}
			dist := squaredDistance(data.RawRowView(i), centroids.RawRowView(owner))
			if dist > farthestDist {
				farthestDist = dist
				farthest = i
			}
		}
		if farthest < 0 {
			return
		}
		counts[assignments[farthest]]--
		assignments[farthest] = c
		counts[c]++
		centroids.SetRow(c, data.RawRowView(farthest))
	}
}

// updateCentroids recalculates cluster centroids as member means
func updateCentroids(data *mat.Dense, assignments []int, k int) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i := 0; i < n; i++ {
		floats.Add(centroids.RawRowView(assignments[i]), data.RawRowView(i))
		counts[assignments[i]]++
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), centroids.RawRowView(c))
		}
	}

	return centroids
}

// calculateCentroidShift returns the summed squared movement of all centroids
func calculateCentroidShift(oldCentroids, newCentroids *mat.Dense) float64 {
	k, _ := oldCentroids.Dims()
	total := 0.0
	for c := 0; c < k; c++ {
		total += squaredDistance(oldCentroids.RawRowView(c), newCentroids.RawRowView(c))
	}
	return total
}

// calculateInertia is the sum of squared distances of points to their centroid
func calculateInertia(data *mat.Dense, assignments []int, centroids *mat.Dense) float64 {
	inertia := 0.0
	for i, c := range assignments {
		inertia += squaredDistance(data.RawRowView(i), centroids.RawRowView(c))
	}
	return inertia
}

func meanColumnVariance(data *mat.Dense) float64 {
	n, d := data.Dims()
	if n < 2 || d == 0 {
		return 0
	}
	col := make([]float64, n)
	total := 0.0
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		total += stat.PopVariance(col, nil)
	}
	return total / float64(d)
}

func squaredDistance(a, b []float64) float64 {
	dist := floats.Distance(a, b, 2)
	return dist * dist
}
