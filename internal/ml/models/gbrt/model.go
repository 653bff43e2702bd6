// Package gbrt fits squared-error gradient-boosted regression trees with boo.
//
// Row and column subsampling are disabled, so a fit is fully deterministic: the same rows and
// options always give the same trees.
package gbrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNumeric is returned when inputs or fitted values are not finite.
var ErrNumeric = errors.New("gbrt: non-finite value")

// newBooster is swapped in tests to observe the options handed to boo.
var newBooster = boo.NewMultiClass

type TrainOptions struct {
	Rounds          int
	LearningRate    float64
	MaxDepth        int
	L2              float64
	MinChildSamples int
	// EarlyStoppingRounds halts training once validation RMSE has not improved for this many
	// rounds. Zero disables early stopping.
	EarlyStoppingRounds int
	// ValidationFraction is the trailing share of the training rows held out for early stopping.
	ValidationFraction float64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:             300,
		LearningRate:       0.1,
		MaxDepth:           6,
		L2:                 1,
		MinChildSamples:    1,
		ValidationFraction: 0.2,
	}
}

type artifact struct {
	FeatureNames   []string `json:"feature_names"`
	ModelText      string   `json:"model_text"`
	EarlyStopped   bool     `json:"early_stopped"`
	ValidationRMSE float64  `json:"validation_rmse,omitempty"`
}

type Model struct {
	featureNames   []string
	boost          *boo.MultiClass
	rounds         int
	earlyStopped   bool
	validationRMSE float64
}

func Train(samples [][]float64, targets []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	return TrainContext(context.Background(), samples, targets, featureNames, opts)
}

// TrainContext fits the ensemble. With early stopping, a first fit on the leading rows picks the
// round count on the held-out tail and the final model is refit on every row with that count.
func TrainContext(ctx context.Context, samples [][]float64, targets []float64, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 || len(samples) != len(targets) {
		return nil, errors.New("invalid training dataset")
	}
	width := len(samples[0])
	if width == 0 {
		return nil, errors.New("empty feature vectors")
	}
	for i := range samples {
		if len(samples[i]) != width {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(samples[i]), width)
		}
		if !allFinite(samples[i]) {
			return nil, fmt.Errorf("%w: sample %d", ErrNumeric, i)
		}
	}
	if !allFinite(targets) {
		return nil, fmt.Errorf("%w: targets", ErrNumeric)
	}
	opts = withDefaults(opts)
	if len(featureNames) != width {
		featureNames = defaultFeatureNames(width)
	}

	m := &Model{featureNames: append([]string(nil), featureNames...), rounds: opts.Rounds}
	if opts.EarlyStoppingRounds > 0 {
		nVal := int(float64(len(samples)) * opts.ValidationFraction)
		if nVal >= 1 && len(samples)-nVal >= 1 {
			cut := len(samples) - nVal
			search, err := fit(ctx, samples[:cut], targets[:cut], featureNames, opts, opts.Rounds)
			if err != nil {
				return nil, err
			}
			m.rounds, m.validationRMSE, m.earlyStopped, err = selectRounds(ctx, search, samples[cut:], targets[cut:], opts.EarlyStoppingRounds)
			if err != nil {
				return nil, err
			}
		}
	}

	boost, err := fit(ctx, samples, targets, featureNames, opts, m.rounds)
	if err != nil {
		return nil, err
	}
	m.boost = boost
	for i := range samples {
		if p := m.Predict(samples[i]); math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: training prediction %d", ErrNumeric, i)
		}
	}
	return m, nil
}

// boostOptions configures boo for deterministic squared-error regression.
func boostOptions(opts TrainOptions, rounds int, base float64) *boo.Options {
	o := boo.DefaultXOptions()
	o.Regression = true
	o.Rounds = rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Lambda = opts.L2
	o.Gamma = 0
	o.MinChildWeight = float64(opts.MinChildSamples)
	o.SubSample = 1
	o.ColSubSample = 1
	// boo skips a round when fewer than MinSample rows were subsampled; without subsampling
	// nothing is drawn, so this must be zero.
	o.MinSample = 0
	o.EarlyStop = 0
	o.BaseScore = base
	o.Verbose = false
	return o
}

// fit runs one boo fit. A canceled ctx returns at once; the abandoned fit finishes in the background.
func fit(ctx context.Context, samples [][]float64, targets []float64, names []string, opts TrainOptions, rounds int) (*boo.MultiClass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := &utils.DataBunch{
		Data:        samples,
		FloatLabels: targets,
		Keys:        names,
	}
	o := boostOptions(opts, rounds, stat.Mean(targets, nil))

	type result struct {
		boost *boo.MultiClass
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("boosting failed: %v", r)}
			}
		}()
		done <- result{boost: newBooster(data, o)}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err == nil && r.boost == nil {
			r.err = errors.New("boosting returned no model")
		}
		return r.boost, r.err
	}
}

// selectRounds replays the search fit round by round on the validation rows and returns the round
// count with the lowest RMSE. It stops once patience rounds pass without improvement.
func selectRounds(ctx context.Context, search *boo.MultiClass, valX [][]float64, valY []float64, patience int) (int, float64, bool, error) {
	e, err := encode(search)
	if err != nil {
		return 0, 0, false, err
	}
	var meta boo.JSONMetaData
	if err := json.Unmarshal([]byte(e.meta), &meta); err != nil {
		return 0, 0, false, fmt.Errorf("read booster metadata: %w", err)
	}

	pred := make([]float64, len(valX))
	for i := range pred {
		pred[i] = meta.BaseScore
	}
	best, bestRMSE := -1, math.Inf(1)
	for round := range e.rounds {
		if err := ctx.Err(); err != nil {
			return 0, 0, false, err
		}
		stage, err := e.stage(round, meta)
		if err != nil {
			return 0, 0, false, err
		}
		for i, x := range valX {
			pred[i] += stage.PredictSingle(x)[0]
		}
		rmse := floats.Distance(pred, valY, 2) / math.Sqrt(float64(len(valY)))
		if math.IsNaN(rmse) || math.IsInf(rmse, 0) {
			return 0, 0, false, fmt.Errorf("%w: validation rmse at round %d", ErrNumeric, round)
		}
		if rmse < bestRMSE {
			best, bestRMSE = round, rmse
		} else if round-best >= patience {
			return best + 1, bestRMSE, true, nil
		}
	}
	return best + 1, bestRMSE, false, nil
}

func (m *Model) Predict(sample []float64) float64 {
	if m == nil || m.boost == nil {
		return math.NaN()
	}
	return m.boost.PredictSingle(sample)[0]
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = m.Predict(samples[i])
	}
	return out
}

// Rounds is the number of boosting rounds in the final ensemble.
func (m *Model) Rounds() int {
	if m == nil {
		return 0
	}
	return m.rounds
}

func (m *Model) EarlyStopped() bool {
	return m != nil && m.earlyStopped
}

func (m *Model) ValidationRMSE() float64 {
	if m == nil {
		return 0
	}
	return m.validationRMSE
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || m.boost == nil {
		return nil, errors.New("nil model")
	}
	e, err := encode(m.boost)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifact{
		FeatureNames:   m.featureNames,
		ModelText:      e.String(),
		EarlyStopped:   m.earlyStopped,
		ValidationRMSE: m.validationRMSE,
	})
}

func UnmarshalBinary(blob []byte) (*Model, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	e, err := parseEnsemble(a.ModelText)
	if err != nil {
		return nil, err
	}
	boost, err := e.decode()
	if err != nil {
		return nil, err
	}
	return &Model{
		featureNames:   append([]string(nil), a.FeatureNames...),
		boost:          boost,
		rounds:         len(e.rounds),
		earlyStopped:   a.EarlyStopped,
		validationRMSE: a.ValidationRMSE,
	}, nil
}

func withDefaults(opts TrainOptions) TrainOptions {
	def := DefaultTrainOptions()
	if opts.Rounds <= 0 {
		opts.Rounds = def.Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = def.LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.L2 < 0 {
		opts.L2 = def.L2
	}
	if opts.MinChildSamples <= 0 {
		opts.MinChildSamples = def.MinChildSamples
	}
	if opts.ValidationFraction <= 0 || opts.ValidationFraction >= 1 {
		opts.ValidationFraction = def.ValidationFraction
	}
	return opts
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func defaultFeatureNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("f%d", i)
	}
	return out
}
