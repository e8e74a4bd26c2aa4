// Package model_selection provides k-fold splitting and cross-validated scoring.
package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X mat.Matrix) ([]Fold, error)
	NSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter.
// Without shuffling the folds are contiguous blocks in row order, and the
// first n%k folds get one extra row.
type KFold struct {
	nSplits    int
	shuffle    bool
	randomSeed int64
}

// NewKFold creates a new k-fold splitter without shuffling.
func NewKFold(nSplits int) *KFold {
	return &KFold{nSplits: nSplits}
}

// NewShuffledKFold creates a k-fold splitter that permutes rows with a fixed seed first.
func NewShuffledKFold(nSplits int, randomSeed int64) *KFold {
	return &KFold{nSplits: nSplits, shuffle: true, randomSeed: randomSeed}
}

// NSplits returns the number of splits
func (kf *KFold) NSplits() int {
	return kf.nSplits
}

// Split generates train/test indices for each fold
func (kf *KFold) Split(X mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if kf.nSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be >= 2", kf.nSplits)
	}
	if nSamples < kf.nSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have number of splits greater than the number of samples")
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.randomSeed), uint64(kf.randomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.nSplits)
	foldSize := nSamples / kf.nSplits
	remainder := nSamples % kf.nSplits

	current := 0
	for i := 0; i < kf.nSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		end := current + testSize

		test := make([]int, testSize)
		copy(test, indices[current:end])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[end:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current = end
	}
	return folds, nil
}
