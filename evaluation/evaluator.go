// Package evaluation trains every registered classifier variant on a
// SMOTE-balanced training partition and scores it on the untouched test
// partition and by stratified cross-validation.
package evaluation

import (
	"context"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/config"
	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/core/parallel"
	"github.com/YuminosukeSato/tumoreval/dataset"
	"github.com/YuminosukeSato/tumoreval/imblearn/over_sampling"
	"github.com/YuminosukeSato/tumoreval/metrics"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
	"github.com/YuminosukeSato/tumoreval/sklearn/model_selection"
)

// Evaluator runs the hold-out and cross-validation protocol over a registry.
type Evaluator struct {
	registry *Registry
	sampler  model.Resampler
	logger   log.Logger

	testSize float64
	seed     int64
	folds    int
	shuffle  bool
	posLabel float64
	parallel bool
	workers  int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTestSize sets the hold-out fraction.
func WithTestSize(f float64) Option {
	return func(e *Evaluator) { e.testSize = f }
}

// WithSeed seeds the hold-out split and the fold assignment.
func WithSeed(seed int64) Option {
	return func(e *Evaluator) { e.seed = seed }
}

// WithFolds sets the number of cross-validation folds and whether samples
// are shuffled within each class before folding.
func WithFolds(k int, shuffle bool) Option {
	return func(e *Evaluator) {
		e.folds = k
		e.shuffle = shuffle
	}
}

// WithPositiveLabel sets the label scored by precision, recall and F1.
func WithPositiveLabel(label float64) Option {
	return func(e *Evaluator) { e.posLabel = label }
}

// WithResampler replaces the training-set balancer.
func WithResampler(r model.Resampler) Option {
	return func(e *Evaluator) { e.sampler = r }
}

// WithParallelVariants evaluates variants concurrently. Results keep
// registry order either way.
func WithParallelVariants(enabled bool) Option {
	return func(e *Evaluator) { e.parallel = enabled }
}

// WithWorkers bounds the number of variants evaluated at once; 0 means one
// per CPU.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator returns an evaluator with the notebook protocol: 20% test,
// seed 42, 5 shuffled folds, positive label 0 and SMOTE(k=5).
func NewEvaluator(registry *Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: registry,
		testSize: 0.2,
		seed:     42,
		folds:    5,
		shuffle:  true,
		posLabel: dataset.Benign,
		logger:   log.GetLoggerWithName("evaluation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sampler == nil {
		e.sampler = over_sampling.NewSMOTE(over_sampling.WithRandomState(e.seed))
	}
	return e
}

// FromConfig builds the default registry and an evaluator for cfg.
func FromConfig(cfg *config.Config) (*Evaluator, error) {
	registry, err := DefaultRegistry(cfg)
	if err != nil {
		return nil, err
	}
	mode, err := over_sampling.ParseInterpolation(cfg.SMOTE.Interpolation)
	if err != nil {
		return nil, err
	}
	ev := cfg.Evaluation
	return NewEvaluator(registry,
		WithTestSize(ev.TestSize),
		WithSeed(ev.Seed),
		WithFolds(ev.Folds, ev.Shuffle),
		WithPositiveLabel(ev.PositiveLabel),
		WithParallelVariants(ev.Parallel),
		WithWorkers(ev.Workers),
		WithResampler(over_sampling.NewSMOTE(
			over_sampling.WithKNeighbors(cfg.SMOTE.KNeighbors),
			over_sampling.WithRandomState(ev.Seed),
			over_sampling.WithInterpolation(mode),
		)),
	), nil
}

// Registry returns the evaluated variants.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Run evaluates every variant on ds. Any failure aborts the run and no
// partial report is returned.
func (e *Evaluator) Run(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	if e.registry == nil || e.registry.Len() == 0 {
		return nil, errors.NewValidationError("registry", "no variants registered", 0)
	}
	if !slices.Contains(ds.Classes(), e.posLabel) {
		return nil, errors.NewValidationError("positive_label", "label does not occur in the dataset", e.posLabel)
	}
	logger := e.logger.With(log.PositiveLabelKey, e.posLabel, log.RandomSeedKey, e.seed)

	parts, err := dataset.HoldOut(ds, e.testSize, e.seed)
	if err != nil {
		return nil, errors.Wrap(err, "hold-out split")
	}
	train, _ := parts.Get(dataset.TrainName)
	test, _ := parts.Get(dataset.TestName)

	balanced, err := e.balance(train)
	if err != nil {
		return nil, errors.Wrap(err, "balance training set")
	}
	logger.Info("training set balanced",
		log.PhaseKey, log.PhaseBalancing,
		log.SplitKey, dataset.TrainName,
		log.SamplesKey, balanced.Len(),
		log.SyntheticKey, balanced.Len()-train.Len(),
	)

	cv := model_selection.NewStratifiedKFold(e.folds, e.shuffle, e.seed)
	errors.Warn(errors.NewDataLeakageWarning("cross_validation",
		"folds are drawn from the balanced training set, synthetic samples share neighbours across folds"))

	variants := e.registry.Variants()
	results := make([]Result, len(variants))
	evalOne := func(ctx context.Context, i int) error {
		res, err := e.evaluateVariant(ctx, logger, variants[i], balanced, test, cv)
		if err != nil {
			return errors.Wrapf(err, "variant %s", variants[i].Name())
		}
		results[i] = res
		return nil
	}

	if e.parallel {
		err = parallel.Run(ctx, len(variants), e.workers, evalOne)
	} else {
		for i := range variants {
			if err = ctx.Err(); err != nil {
				err = errors.Wrapf(err, "evaluation cancelled before variant %s", variants[i].Name())
				break
			}
			if err = evalOne(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	report, err := Assemble(results)
	if err != nil {
		return nil, err
	}
	report.Summary = Summary{
		Features:     ds.FeatureNames(),
		ClassNames:   ds.ClassNames(),
		Seed:         e.seed,
		Samples:      ds.Len(),
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
		Balanced:     balanced.Len(),
		Synthetic:    balanced.Len() - train.Len(),
		Folds:        cv.GetNSplits(),
	}
	if pg, ok := e.sampler.(model.ParameterGetter); ok {
		if mode, ok := pg.GetParams()["interpolation"].(string); ok {
			report.Summary.Interpolation = mode
		}
	}
	return report, nil
}

func (e *Evaluator) balance(train *dataset.Dataset) (*dataset.Dataset, error) {
	Xb, yb, err := e.sampler.FitResample(train.X(), train.Y())
	if err != nil {
		return nil, err
	}
	return dataset.New(train.FeatureNames(), Xb, yb, dataset.WithClassNames(train.ClassNames()...))
}

func (e *Evaluator) evaluateVariant(ctx context.Context, logger log.Logger, v *Variant, balanced, test *dataset.Dataset, cv *model_selection.StratifiedKFold) (Result, error) {
	start := time.Now()
	logger = logger.With(log.VariantKey, v.Name())

	logger.Debug("training variant", log.PhaseKey, log.PhaseTraining, log.SamplesKey, balanced.Len())
	if err := v.Train(balanced); err != nil {
		return Result{}, err
	}

	pred, err := v.Predict(test)
	if err != nil {
		return Result{}, err
	}
	rep, err := metrics.BinaryClassificationReport(mat.VecDenseCopyOf(test.Y()), pred, e.posLabel)
	if err != nil {
		return Result{}, errors.Wrap(err, "score test partition")
	}

	logger.Debug("cross-validating variant", log.PhaseKey, log.PhaseValidation, "folds", cv.GetNSplits())
	folds, err := model_selection.CrossValScore(ctx, v.Factory(), balanced.X(), balanced.Y(), cv)
	if err != nil {
		return Result{}, err
	}

	res := newResult(v.Name(), e.posLabel, rep, folds)
	res.Importances = v.FeatureImportances()
	res.Params = v.Params()

	logger.Info("variant evaluated",
		log.PhaseKey, log.PhaseTesting,
		log.AccuracyKey, res.Accuracy,
		log.F1Key, res.F1,
		"cv_mean", res.CVMean,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}
