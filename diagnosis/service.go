package diagnosis

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"hospitalpredict/dataset"
)

// Recorder receives training and prediction observations.
type Recorder interface {
	ObserveTraining(d time.Duration, accuracy float64, rows int)
	ObserveCacheHit()
	ObservePrediction(detected bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTraining(time.Duration, float64, int) {}
func (nopRecorder) ObserveCacheHit()                            {}
func (nopRecorder) ObservePrediction(bool)                      {}

type EventType string

const (
	EventModelTrained   EventType = "model_trained"
	EventDatasetChanged EventType = "dataset_changed"
	EventTrainingFailed EventType = "training_failed"
)

type Event struct {
	Type  EventType `json:"type"`
	Model *Summary  `json:"model,omitempty"`
	Error string    `json:"error,omitempty"`
}

type cacheKey struct {
	digest string
	opts   Options
}

// Service reloads the dataset and refits on every Train call. Fitting is
// deterministic for a given table and options, so identical content is
// answered from an LRU cache of fitted models.
type Service struct {
	source   dataset.Source
	opts     Options
	logger   *zap.Logger
	recorder Recorder
	cache    *lru.Cache[cacheKey, *Model]

	mu      sync.RWMutex
	current *Model

	subsMu sync.Mutex
	subs   map[chan Event]struct{}
}

// NewService builds a service. logger and recorder may be nil.
func NewService(source dataset.Source, opts Options, logger *zap.Logger, recorder Recorder) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("dataset source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	s := &Service{
		source:   source,
		opts:     opts,
		logger:   logger,
		recorder: recorder,
		subs:     make(map[chan Event]struct{}),
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, *Model](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Service) Options() Options {
	return s.opts
}

// Train loads the source and returns a model fitted on its current content.
func (s *Service) Train(ctx context.Context) (*Model, error) {
	start := time.Now()
	table, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	key := cacheKey{digest: table.Digest(), opts: s.opts}
	if s.cache != nil {
		if model, ok := s.cache.Get(key); ok {
			s.recorder.ObserveCacheHit()
			s.setCurrent(model)
			return model, nil
		}
	}

	model, err := Fit(table, s.opts)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	s.recorder.ObserveTraining(elapsed, model.Accuracy, model.Rows)
	if s.cache != nil {
		s.cache.Add(key, model)
	}

	s.logger.Info("model trained",
		zap.String("source", s.source.String()),
		zap.Int("rows", model.Rows),
		zap.Float64("accuracy", model.Accuracy),
		zap.Int("depth", model.Depth),
		zap.Duration("elapsed", elapsed),
	)
	s.setCurrent(model)
	return model, nil
}

// Predict retrains, then classifies v with the fresh model.
func (s *Service) Predict(ctx context.Context, v dataset.Vitals) (*Model, Outcome, error) {
	model, err := s.Train(ctx)
	if err != nil {
		return nil, Outcome{}, err
	}
	outcome, err := model.Predict(v)
	if err != nil {
		return model, Outcome{}, err
	}
	s.recorder.ObservePrediction(outcome.Detected)
	return model, outcome, nil
}

// Dataset loads the source without fitting.
func (s *Service) Dataset(ctx context.Context) (*dataset.Table, error) {
	table, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return table, nil
}

// Source names where the service reads its dataset from.
func (s *Service) Source() string {
	return s.source.String()
}

// Current returns the last trained model, or nil before the first Train.
func (s *Service) Current() *Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) setCurrent(model *Model) {
	s.mu.Lock()
	changed := s.current == nil || s.current.Digest != model.Digest
	s.current = model
	s.mu.Unlock()

	if changed {
		summary := model.Summary()
		s.publish(Event{Type: EventModelTrained, Model: &summary})
	}
}

// Subscribe returns a buffered event stream and a cancel func. Slow
// subscribers miss events rather than block training.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) publish(event Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Watch retrains whenever changes fires, until ctx is done.
func (s *Service) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.publish(Event{Type: EventDatasetChanged})
			if _, err := s.Train(ctx); err != nil {
				s.logger.Error("retrain after dataset change failed", zap.Error(err))
				s.publish(Event{Type: EventTrainingFailed, Error: err.Error()})
			}
		}
	}
}
