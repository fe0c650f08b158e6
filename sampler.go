package topictree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Sample picks exactly n documents without replacement. The returned indices
// are in draw order and the same seed always yields the same draw.
func Sample(c *Corpus, n int, seed int64) (*Corpus, []int, error) {
	if n < 0 || n > c.Len() {
		return nil, nil, fmt.Errorf("%w: n_samples=%d exceeds corpus size %d", ErrOutOfRange, n, c.Len())
	}

	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(c.Len())[:n]

	return c.Subset(indices), indices, nil
}

// SplitResult holds a stratified train/test partition. TrainIndex and
// TestIndex point into the corpus passed to Split.
type SplitResult struct {
	Train      *Corpus
	Test       *Corpus
	TrainIndex []int
	TestIndex  []int
}

// Split partitions c so that every label keeps its share of the test set
// within one unit of rounding.
func Split(c *Corpus, testFraction float64, seed int64) (*SplitResult, error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("%w: test fraction must be in (0, 1), got %g", ErrConfiguration, testFraction)
	}

	byLabel := make([][]int, len(c.LabelNames))
	for i, doc := range c.Docs {
		byLabel[doc.Label] = append(byLabel[doc.Label], i)
	}

	rng := rand.New(rand.NewSource(seed))

	var trainIndex, testIndex []int
	for label, members := range byLabel {
		if len(members) == 0 {
			continue
		}
		nTest := int(math.Round(float64(len(members)) * testFraction))
		if nTest == 0 || nTest == len(members) {
			return nil, fmt.Errorf("%w: label %q has %d documents, cannot split at %g",
				ErrInsufficientSamples, c.LabelNames[label], len(members), testFraction)
		}

		shuffled := make([]int, len(members))
		copy(shuffled, members)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		testIndex = append(testIndex, shuffled[:nTest]...)
		trainIndex = append(trainIndex, shuffled[nTest:]...)
	}

	sort.Ints(trainIndex)
	sort.Ints(testIndex)

	return &SplitResult{
		Train:      c.Subset(trainIndex),
		Test:       c.Subset(testIndex),
		TrainIndex: trainIndex,
		TestIndex:  testIndex,
	}, nil
}
