package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "DecisionTreeClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "resample", ...
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work, e.g. "evaluation".
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline phase.
	PhaseKey = "ml.phase"
)

// Evaluation context.
const (
	// VariantKey is the registry name of a classifier variant.
	VariantKey = "eval.variant"

	// FoldKey is the zero-based cross-validation fold index.
	FoldKey = "eval.fold"

	// SplitKey names a partition: "train", "test" or "fold_<k>".
	SplitKey = "eval.split"

	// PositiveLabelKey is the label treated as positive by binary metrics.
	PositiveLabelKey = "eval.pos_label"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	ClassKey     = "data.class"
	BatchSizeKey = "data.batch_size"

	// SyntheticKey is the number of samples generated by an over-sampler.
	SyntheticKey = "data.synthetic"
)

// Metrics and training progress.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	F1Key         = "metrics.f1"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
)

// Error and warning context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
	WarningKey    = "warning"
	RandomSeedKey = "config.random_seed"
	ConfigFileKey = "config.file"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationResample  = "resample"
	OperationScore     = "score"

	PhaseLoading    = "loading"
	PhaseBalancing  = "balancing"
	PhaseTraining   = "training"
	PhaseTesting    = "testing"
	PhaseValidation = "validation"
	PhaseReporting  = "reporting"
)
