package ml

import "errors"

var ErrNotTrained = errors.New("model not trained")

// Classifier is a supervised model over numeric feature vectors and
// integer-encoded labels.
type Classifier interface {
	Train(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
}

// PredictAll runs Predict over every row.
func PredictAll(model Classifier, features [][]float64) ([]int, error) {
	predictions := make([]int, len(features))
	for i, row := range features {
		label, _, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		predictions[i] = label
	}
	return predictions, nil
}
