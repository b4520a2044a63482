package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalpredict/dataset"
)

type tableSource struct {
	mu    sync.Mutex
	table *dataset.Table
	err   error
	loads int
}

func (s *tableSource) Load(ctx context.Context) (*dataset.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.table, s.err
}

func (s *tableSource) String() string { return "memory" }

func (s *tableSource) set(table *dataset.Table) {
	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
}

type countingRecorder struct {
	mu          sync.Mutex
	trainings   int
	cacheHits   int
	predictions map[bool]int
}

func (r *countingRecorder) ObserveTraining(time.Duration, float64, int) {
	r.mu.Lock()
	r.trainings++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveCacheHit() {
	r.mu.Lock()
	r.cacheHits++
	r.mu.Unlock()
}

func (r *countingRecorder) ObservePrediction(detected bool) {
	r.mu.Lock()
	if r.predictions == nil {
		r.predictions = map[bool]int{}
	}
	r.predictions[detected]++
	r.mu.Unlock()
}

// patients builds a table where disease means fever above 100°F and sugar
// above 180 mg/dL.
func patients(n int) *dataset.Table {
	rows := make([]dataset.Patient, 0, n)
	for i := 0; i < n; i++ {
		p := dataset.Patient{
			Age:   float64(20 + (i*7)%60),
			Fever: 97 + float64(i%8),
			BP:    100 + float64((i*13)%90),
			Sugar: 80 + float64((i*37)%200),
		}
		p.Disease = "No"
		if p.Fever > 100 && p.Sugar > 180 {
			p.Disease = "Yes"
		}
		rows = append(rows, p)
	}
	return dataset.NewTable(rows)
}

func TestFit(t *testing.T) {
	model, err := Fit(patients(60), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"No", "Yes"}, model.Classes)
	assert.Equal(t, 60, model.Rows)
	assert.Equal(t, 48, model.TrainRows)
	assert.Equal(t, 12, model.TestRows)
	assert.GreaterOrEqual(t, model.Accuracy, 0.0)
	assert.LessOrEqual(t, model.Accuracy, 1.0)
	assert.Len(t, model.Preview, 5)
	assert.Len(t, model.Importances, 4)

	again, err := Fit(patients(60), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.Accuracy, again.Accuracy)
	assert.Equal(t, model.Depth, again.Depth)
}

func TestModelPredict(t *testing.T) {
	model, err := Fit(patients(80), DefaultOptions())
	require.NoError(t, err)

	sick, err := model.Predict(dataset.Vitals{Age: 50, Fever: 104, BP: 150, Sugar: 270})
	require.NoError(t, err)
	assert.True(t, sick.Detected)
	assert.Equal(t, "Yes", sick.Label)
	assert.Equal(t, MessageDetected, sick.Message)

	well, err := model.Predict(dataset.DefaultVitals())
	require.NoError(t, err)
	assert.False(t, well.Detected)
	assert.Equal(t, "No", well.Label)
	assert.Equal(t, MessageHealthy, well.Message)

	clamped, err := model.Predict(dataset.Vitals{Age: 500, Fever: 20, BP: 0, Sugar: 1000})
	require.NoError(t, err)
	assert.Equal(t, dataset.Vitals{Age: 120, Fever: 90, BP: 60, Sugar: 300}, clamped.Vitals)
	assert.Contains(t, []string{MessageDetected, MessageHealthy}, clamped.Message)
}

func TestFitRejectsBadTables(t *testing.T) {
	_, err := Fit(dataset.NewTable(nil), DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	table := patients(10)
	table.Rows[0].Disease = "Maybe"
	_, err = Fit(table, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotBinary)

	single := dataset.NewTable([]dataset.Patient{{Age: 1, Fever: 98, BP: 100, Sugar: 90, Disease: "No"}})
	_, err = Fit(single, DefaultOptions())
	assert.Error(t, err)
}

func TestFormatAccuracy(t *testing.T) {
	assert.Equal(t, "Accuracy: 83.33 %", FormatAccuracy(5.0/6.0))
	assert.Equal(t, "Accuracy: 100.00 %", FormatAccuracy(1))
}

func TestServiceTrainUsesCache(t *testing.T) {
	source := &tableSource{table: patients(40)}
	recorder := &countingRecorder{}
	opts := DefaultOptions()
	opts.CacheSize = 16
	svc, err := NewService(source, opts, nil, recorder)
	require.NoError(t, err)
	assert.Nil(t, svc.Current())

	first, err := svc.Train(context.Background())
	require.NoError(t, err)
	second, err := svc.Train(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, second, svc.Current())
	assert.Equal(t, 2, source.loads)
	assert.Equal(t, 1, recorder.trainings)
	assert.Equal(t, 1, recorder.cacheHits)

	source.set(patients(50))
	third, err := svc.Train(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Digest, third.Digest)
	assert.Equal(t, 2, recorder.trainings)
}

func TestServiceDefaultRefitsEveryCall(t *testing.T) {
	opts := DefaultOptions()
	require.Zero(t, opts.CacheSize)
	recorder := &countingRecorder{}
	svc, err := NewService(&tableSource{table: patients(40)}, opts, nil, recorder)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Train(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, recorder.trainings)
	assert.Equal(t, 0, recorder.cacheHits)
}

func TestServicePredict(t *testing.T) {
	recorder := &countingRecorder{}
	svc, err := NewService(&tableSource{table: patients(80)}, DefaultOptions(), nil, recorder)
	require.NoError(t, err)

	model, outcome, err := svc.Predict(context.Background(), dataset.Vitals{Age: 50, Fever: 104, BP: 150, Sugar: 270})
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.True(t, outcome.Detected)
	assert.Equal(t, 1, recorder.predictions[true])

	failing, err := NewService(&tableSource{err: errors.New("disk gone")}, DefaultOptions(), nil, nil)
	require.NoError(t, err)
	_, _, err = failing.Predict(context.Background(), dataset.DefaultVitals())
	assert.ErrorContains(t, err, "disk gone")
}

func TestServiceEvents(t *testing.T) {
	source := &tableSource{table: patients(40)}
	svc, err := NewService(source, DefaultOptions(), nil, nil)
	require.NoError(t, err)

	events, cancelSub := svc.Subscribe()
	defer cancelSub()

	_, err = svc.Train(context.Background())
	require.NoError(t, err)
	event := <-events
	assert.Equal(t, EventModelTrained, event.Type)
	require.NotNil(t, event.Model)
	assert.Equal(t, 40, event.Model.Rows)

	_, err = svc.Train(context.Background())
	require.NoError(t, err)
	select {
	case event := <-events:
		t.Fatalf("unchanged dataset should not publish, got %v", event.Type)
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{}, 1)
	go svc.Watch(ctx, changes)

	source.set(patients(45))
	changes <- struct{}{}
	assert.Equal(t, EventDatasetChanged, (<-events).Type)
	trained := <-events
	assert.Equal(t, EventModelTrained, trained.Type)
	assert.Equal(t, 45, trained.Model.Rows)

	source.set(dataset.NewTable(nil))
	changes <- struct{}{}
	assert.Equal(t, EventDatasetChanged, (<-events).Type)
	failed := <-events
	assert.Equal(t, EventTrainingFailed, failed.Type)
	assert.NotEmpty(t, failed.Error)
}

func ExampleFormatAccuracy() {
	fmt.Println(FormatAccuracy(0.875))
	// Output: Accuracy: 87.50 %
}
