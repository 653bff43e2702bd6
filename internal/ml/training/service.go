package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"crude-outlook/internal/cache"
	"crude-outlook/internal/domain"
	"crude-outlook/internal/ml/features"
	"crude-outlook/internal/ml/models/gbrt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dataset is the feature table a model is trained on, tagged with where it came from.
type Dataset struct {
	Session string
	Series  *domain.PriceSeries
	Fill    domain.LagFill
	Rows    []domain.FeatureRow
}

// Outcome is a trained model plus its scores on the evaluation window.
type Outcome struct {
	Model      *gbrt.Model
	Evaluation domain.EvaluationResult
	EvalRows   []domain.EvaluationRow
	TrainRows  int
	CacheHit   bool
}

type cachedModel struct {
	Artifact  json.RawMessage `json:"artifact"`
	TrainRows int             `json:"train_rows"`
	TrainedAt time.Time       `json:"trained_at"`
}

type Service struct {
	tracer trace.Tracer
	store  cache.Store
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds a trainer. A nil store disables model caching.
func NewService(tracer trace.Tracer, store cache.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{tracer: tracer, store: store, ttl: ttl, now: time.Now}
}

// TrainAndEvaluate fits on rows[:len-h] and scores rows[len-h:], reusing a cached model when
// nothing that affects it has changed.
func (s *Service) TrainAndEvaluate(ctx context.Context, ds Dataset, h int, hp domain.Hyperparameters) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "training.train-and-evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int("horizon", h), attribute.String("hyper", hp.Key()))

	train, eval, err := Split(ds.Rows, h)
	if err != nil {
		return nil, err
	}

	key := s.modelKey(ds, h, hp)
	model, hit := s.loadCached(ctx, key)
	if !hit {
		trainX, trainY := features.Matrix(train)
		model, err = gbrt.TrainContext(ctx, trainX, trainY, domain.FeatureNames, TrainOptions(hp))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrModelTraining, err)
		}
		s.storeCached(ctx, key, model, len(train))
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit), attribute.Int("rounds", model.Rounds()))

	evalX, actual := features.Matrix(eval)
	predicted := model.PredictBatch(evalX)
	for i, p := range predicted {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: non-finite prediction for %s", domain.ErrModelTraining, eval[i].Date.Format(time.DateOnly))
		}
	}
	result, err := Evaluate(actual, predicted)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.EvaluationRow, len(eval))
	for i := range eval {
		rows[i] = domain.EvaluationRow{Date: eval[i].Date, Actual: actual[i], Predicted: predicted[i]}
	}
	return &Outcome{
		Model:      model,
		Evaluation: result,
		EvalRows:   rows,
		TrainRows:  len(train),
		CacheHit:   hit,
	}, nil
}

// TrainOptions maps user-facing hyperparameters onto the booster.
func TrainOptions(hp domain.Hyperparameters) gbrt.TrainOptions {
	opts := gbrt.TrainOptions{
		Rounds:             hp.Trees,
		LearningRate:       hp.LearningRate,
		MaxDepth:           hp.MaxDepth,
		L2:                 hp.L2,
		MinChildSamples:    1,
		ValidationFraction: hp.ValidationFraction,
	}
	if hp.EarlyStopping {
		opts.EarlyStoppingRounds = hp.Patience
	}
	return opts
}

func (s *Service) modelKey(ds Dataset, h int, hp domain.Hyperparameters) string {
	ticker, window := "", ""
	if ds.Series != nil {
		ticker = ds.Series.Ticker
		window = ds.Series.Window.Key()
	}
	return cache.ModelKey(ds.Session, ticker, window, ds.Series.Fingerprint(), string(ds.Fill), "h"+strconv.Itoa(h), hp.Key())
}

func (s *Service) loadCached(ctx context.Context, key string) (*gbrt.Model, bool) {
	if s.store == nil {
		return nil, false
	}
	var cached cachedModel
	ok, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("model cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	model, err := gbrt.UnmarshalBinary(cached.Artifact)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding corrupt cached model")
		return nil, false
	}
	return model, true
}

func (s *Service) storeCached(ctx context.Context, key string, model *gbrt.Model, trainRows int) {
	if s.store == nil {
		return
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		log.Warn().Err(err).Msg("marshal model for cache")
		return
	}
	entry := cachedModel{Artifact: blob, TrainRows: trainRows, TrainedAt: s.now().UTC()}
	if err := s.store.Set(ctx, key, entry, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("model cache write failed")
	}
}
