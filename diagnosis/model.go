// Package diagnosis fits the disease classifier on a patient table and turns
// submitted vitals into one of two outcome messages.
package diagnosis

import (
	"errors"
	"fmt"
	"time"

	"hospitalpredict/dataset"
	"hospitalpredict/ml"
)

const (
	// PositiveCode is the encoded class reported as a detected disease.
	PositiveCode = 1

	MessageDetected = "🚨 Disease Detected ❗ Please consult a doctor 🏥"
	MessageHealthy  = "💚 No Disease Detected 🎉 Stay Healthy!"
)

var (
	ErrEmptyDataset = errors.New("dataset has no rows")
	ErrNotBinary    = errors.New("disease column must have exactly two classes")
)

type Options struct {
	TestSize        float64
	RandomSeed      int64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	PreviewRows     int
	CacheSize       int
}

func DefaultOptions() Options {
	return Options{
		TestSize:        0.2,
		RandomSeed:      42,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		PreviewRows:     5,
		CacheSize:       0,
	}
}

// Model is one fitted classifier plus what the page shows about it.
type Model struct {
	Accuracy    float64
	Precision   float64
	Recall      float64
	Classes     []string
	TrainedAt   time.Time
	Rows        int
	TrainRows   int
	TestRows    int
	Digest      string
	Depth       int
	Leaves      int
	Importances map[string]float64
	Preview     []dataset.Patient

	tree *ml.DecisionTree
}

// Outcome is the answer for one set of vitals.
type Outcome struct {
	Vitals     dataset.Vitals `json:"vitals"`
	Code       int            `json:"code"`
	Label      string         `json:"label"`
	Detected   bool           `json:"detected"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message"`
}

// Summary is the JSON view of a model.
type Summary struct {
	Accuracy     float64            `json:"accuracy"`
	AccuracyText string             `json:"accuracy_text"`
	Precision    float64            `json:"precision"`
	Recall       float64            `json:"recall"`
	Classes      []string           `json:"classes"`
	Rows         int                `json:"rows"`
	TrainRows    int                `json:"train_rows"`
	TestRows     int                `json:"test_rows"`
	Depth        int                `json:"depth"`
	Leaves       int                `json:"leaves"`
	Importances  map[string]float64 `json:"importances"`
	Digest       string             `json:"digest"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Fit encodes labels, splits, fits and scores. It does no caching.
func Fit(table *dataset.Table, opts Options) (*Model, error) {
	if table.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	encoder := &ml.LabelEncoder{}
	labels, err := encoder.FitTransform(table.Labels())
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}
	classes := encoder.Classes()
	if len(classes) != 2 {
		return nil, fmt.Errorf("%w: found %d %v", ErrNotBinary, len(classes), classes)
	}

	trainX, trainY, testX, testY, err := ml.TrainTestSplit(table.Features(), labels, opts.TestSize, opts.RandomSeed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}

	tree := &ml.DecisionTree{
		MaxDepth:        opts.MaxDepth,
		MinSamplesSplit: opts.MinSamplesSplit,
		MinSamplesLeaf:  opts.MinSamplesLeaf,
	}
	if err := tree.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit tree: %w", err)
	}

	predictions, err := ml.PredictAll(tree, testX)
	if err != nil {
		return nil, fmt.Errorf("score tree: %w", err)
	}
	accuracy, err := ml.AccuracyScore(testY, predictions)
	if err != nil {
		return nil, fmt.Errorf("score tree: %w", err)
	}
	precision, recall, err := ml.PrecisionRecall(testY, predictions, PositiveCode)
	if err != nil {
		return nil, fmt.Errorf("score tree: %w", err)
	}

	importances := make(map[string]float64, len(dataset.FeatureColumns))
	for i, v := range tree.FeatureImportances() {
		importances[dataset.FeatureColumns[i]] = v
	}

	return &Model{
		Accuracy:    accuracy,
		Precision:   precision,
		Recall:      recall,
		Classes:     classes,
		TrainedAt:   time.Now().UTC(),
		Rows:        table.Len(),
		TrainRows:   len(trainX),
		TestRows:    len(testX),
		Digest:      table.Digest(),
		Depth:       tree.Depth(),
		Leaves:      tree.LeafCount(),
		Importances: importances,
		Preview:     table.Head(opts.PreviewRows),
		tree:        tree,
	}, nil
}

// Predict clamps v to the input bounds and classifies it.
func (m *Model) Predict(v dataset.Vitals) (Outcome, error) {
	v = v.Clamp()
	code, confidence, err := m.tree.Predict(v.Vector())
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{
		Vitals:     v,
		Code:       code,
		Label:      m.Classes[code],
		Detected:   code == PositiveCode,
		Confidence: confidence,
		Message:    MessageHealthy,
	}
	if outcome.Detected {
		outcome.Message = MessageDetected
	}
	return outcome, nil
}

func (m *Model) AccuracyText() string {
	return FormatAccuracy(m.Accuracy)
}

func (m *Model) Summary() Summary {
	return Summary{
		Accuracy:     m.Accuracy,
		AccuracyText: m.AccuracyText(),
		Precision:    m.Precision,
		Recall:       m.Recall,
		Classes:      m.Classes,
		Rows:         m.Rows,
		TrainRows:    m.TrainRows,
		TestRows:     m.TestRows,
		Depth:        m.Depth,
		Leaves:       m.Leaves,
		Importances:  m.Importances,
		Digest:       m.Digest,
		TrainedAt:    m.TrainedAt,
	}
}

// FormatAccuracy renders a [0, 1] score as a two-decimal percentage.
func FormatAccuracy(accuracy float64) string {
	return fmt.Sprintf("Accuracy: %.2f %%", accuracy*100)
}
