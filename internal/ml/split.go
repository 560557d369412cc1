package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices with seed and returns disjoint train
// and test index sets. The test set holds ceil(n*testRatio) rows.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0,1), got %v", testRatio)
	}
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d rows with test ratio %v", n, testRatio)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Take selects rows of X and y by index.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
