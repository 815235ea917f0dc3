package evaluation

import (
	"github.com/YuminosukeSato/tumoreval/config"
	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/preprocessing"
	"github.com/YuminosukeSato/tumoreval/sklearn/ensemble"
	"github.com/YuminosukeSato/tumoreval/sklearn/neural_network"
	"github.com/YuminosukeSato/tumoreval/sklearn/pipeline"
	"github.com/YuminosukeSato/tumoreval/sklearn/tree"
)

// Registry keeps variants in registration order.
type Registry struct {
	order    []string
	variants map[string]*Variant
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]*Variant)}
}

// Register adds v. Names must be unique.
func (r *Registry) Register(v *Variant) error {
	if v == nil || v.Name() == "" {
		return errors.NewValidationError("variant", "variant needs a name", v)
	}
	if _, dup := r.variants[v.Name()]; dup {
		return errors.NewValidationError("variant", "already registered", v.Name())
	}
	r.order = append(r.order, v.Name())
	r.variants[v.Name()] = v
	return nil
}

// Get looks a variant up by name.
func (r *Registry) Get(name string) (*Variant, bool) {
	v, ok := r.variants[name]
	return v, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Variants returns the registered variants in order.
func (r *Registry) Variants() []*Variant {
	out := make([]*Variant, len(r.order))
	for i, name := range r.order {
		out[i] = r.variants[name]
	}
	return out
}

// Len returns the number of variants.
func (r *Registry) Len() int { return len(r.order) }

// DefaultRegistry registers the variants named in cfg.Evaluation.Variants,
// in that order. Every variant is seeded with cfg.Evaluation.Seed.
func DefaultRegistry(cfg *config.Config) (*Registry, error) {
	seed := cfg.Evaluation.Seed
	r := NewRegistry()
	for _, name := range cfg.Evaluation.Variants {
		var build Builder
		switch name {
		case config.DecisionTree:
			build = decisionTreeBuilder(cfg.Models.DecisionTree, seed)
		case config.MLP:
			build = mlpBuilder(cfg.Models.MLP, seed)
		case config.RandomForest:
			build = randomForestBuilder(cfg.Models.RandomForest, seed)
		default:
			return nil, errors.NewValidationError("evaluation.variants", "unknown variant", name)
		}
		if err := r.Register(NewVariant(name, build)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func decisionTreeBuilder(c config.TreeConfig, seed int64) Builder {
	return func() model.Classifier {
		return tree.NewDecisionTreeClassifier(
			tree.WithCriterion(c.Criterion),
			tree.WithMaxDepth(c.MaxDepth),
			tree.WithMinSamplesSplit(c.MinSamplesSplit),
			tree.WithMinSamplesLeaf(c.MinSamplesLeaf),
			tree.WithMaxFeatures(c.MaxFeatures),
			tree.WithRandomState(seed),
		)
	}
}

// mlpBuilder standardizes features in front of the network unless disabled.
func mlpBuilder(c config.MLPConfig, seed int64) Builder {
	return func() model.Classifier {
		net := neural_network.NewMLPClassifier(
			neural_network.WithHiddenLayerSizes(c.HiddenLayerSizes...),
			neural_network.WithActivation(c.Activation),
			neural_network.WithAlpha(c.Alpha),
			neural_network.WithBatchSize(c.BatchSize),
			neural_network.WithLearningRate(c.LearningRate),
			neural_network.WithMaxIter(c.MaxIter),
			neural_network.WithTol(c.Tol),
			neural_network.WithNIterNoChange(c.NIterNoChange),
			neural_network.WithShuffle(c.Shuffle),
			neural_network.WithRandomState(seed),
		)
		if !c.Standardize {
			return net
		}
		return pipeline.NewPipeline(preprocessing.NewStandardScalerDefault(), net)
	}
}

func randomForestBuilder(c config.ForestConfig, seed int64) Builder {
	return func() model.Classifier {
		return ensemble.NewRandomForestClassifier(
			ensemble.WithNEstimators(c.NEstimators),
			ensemble.WithCriterion(c.Criterion),
			ensemble.WithMaxDepth(c.MaxDepth),
			ensemble.WithMinSamplesSplit(c.MinSamplesSplit),
			ensemble.WithMinSamplesLeaf(c.MinSamplesLeaf),
			ensemble.WithMaxFeatures(c.MaxFeatures),
			ensemble.WithBootstrap(c.Bootstrap),
			ensemble.WithRandomState(seed),
		)
	}
}
