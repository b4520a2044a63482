package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles rows with a seeded source and holds out
// ceil(testSize*n) of them. The same seed always yields the same partition.
func TrainTestSplit(features [][]float64, labels []int, testSize float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int, err error) {
	n := len(features)
	if n != len(labels) {
		return nil, nil, nil, nil, errors.New("features and labels size mismatch")
	}
	if n < 2 {
		return nil, nil, nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", n)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test size %.3f out of range (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, nil, nil, nil, fmt.Errorf("test size %.3f leaves an empty split for %d rows", testSize, n)
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)

	testX = make([][]float64, 0, nTest)
	testY = make([]int, 0, nTest)
	trainX = make([][]float64, 0, nTrain)
	trainY = make([]int, 0, nTrain)
	for i, idx := range indices {
		if i < nTest {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		} else {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY, nil
}
