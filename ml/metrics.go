package ml

import "errors"

// AccuracyScore is the fraction of matching predictions, in [0, 1].
func AccuracyScore(yTrue, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.New("no samples to score")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.New("yTrue and yPred size mismatch")
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// PrecisionRecall scores predictions of the positive class. A ratio with an
// empty denominator is 0.
func PrecisionRecall(yTrue, yPred []int, positive int) (precision, recall float64, err error) {
	if len(yTrue) == 0 {
		return 0, 0, errors.New("no samples to score")
	}
	if len(yTrue) != len(yPred) {
		return 0, 0, errors.New("yTrue and yPred size mismatch")
	}

	var truePositive, predictedPositive, actualPositive int
	for i := range yTrue {
		if yPred[i] == positive {
			predictedPositive++
		}
		if yTrue[i] == positive {
			actualPositive++
			if yPred[i] == positive {
				truePositive++
			}
		}
	}
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return precision, recall, nil
}
