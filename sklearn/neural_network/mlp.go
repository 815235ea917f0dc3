// Package neural_network provides a multi-layer perceptron classifier
// trained with Adam, compatible with scikit-learn's MLPClassifier defaults.
package neural_network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tumoreval/core/model"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
	"github.com/YuminosukeSato/tumoreval/pkg/log"
)

// MLPClassifier is a feed-forward network with a logistic output unit for
// binary problems and a softmax output layer otherwise.
type MLPClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	hiddenLayerSizes []int   // Units per hidden layer
	activation       string  // Hidden activation: "relu", "tanh", "logistic"
	alpha            float64 // L2 penalty
	batchSize        int     // Minibatch size, 0 = min(200, n_samples)
	learningRate     float64 // Adam step size
	maxIter          int     // Maximum epochs
	tol              float64 // Loss improvement tolerance
	nIterNoChange    int     // Epochs without tol improvement before stopping
	shuffle          bool    // Shuffle samples every epoch
	randomState      int64   // Seed for weights and shuffling
	beta1, beta2     float64 // Adam moment decay
	epsilon          float64 // Adam numerical stability

	// Model parameters
	coefs_      []*mat.Dense // coefs_[l] is (fan_in x fan_out)
	intercepts_ [][]float64
	lossCurve_  []float64
	nIter_      int
	converged_  bool
}

// Option configures an MLPClassifier.
type Option func(*MLPClassifier)

// WithHiddenLayerSizes sets the hidden layer widths, e.g. WithHiddenLayerSizes(100).
func WithHiddenLayerSizes(sizes ...int) Option {
	return func(m *MLPClassifier) { m.hiddenLayerSizes = append([]int(nil), sizes...) }
}

// WithActivation sets the hidden activation.
func WithActivation(activation string) Option {
	return func(m *MLPClassifier) { m.activation = activation }
}

// WithAlpha sets the L2 penalty.
func WithAlpha(alpha float64) Option {
	return func(m *MLPClassifier) { m.alpha = alpha }
}

// WithBatchSize sets the minibatch size. 0 selects min(200, n_samples).
func WithBatchSize(n int) Option {
	return func(m *MLPClassifier) { m.batchSize = n }
}

// WithLearningRate sets Adam's initial learning rate.
func WithLearningRate(lr float64) Option {
	return func(m *MLPClassifier) { m.learningRate = lr }
}

// WithMaxIter sets the maximum number of epochs.
func WithMaxIter(n int) Option {
	return func(m *MLPClassifier) { m.maxIter = n }
}

// WithTol sets the loss improvement tolerance.
func WithTol(tol float64) Option {
	return func(m *MLPClassifier) { m.tol = tol }
}

// WithNIterNoChange sets the patience in epochs.
func WithNIterNoChange(n int) Option {
	return func(m *MLPClassifier) { m.nIterNoChange = n }
}

// WithShuffle toggles per-epoch shuffling.
func WithShuffle(shuffle bool) Option {
	return func(m *MLPClassifier) { m.shuffle = shuffle }
}

// WithRandomState seeds weight initialisation and shuffling.
func WithRandomState(seed int64) Option {
	return func(m *MLPClassifier) { m.randomState = seed }
}

// NewMLPClassifier creates an unfitted network with scikit-learn's defaults.
func NewMLPClassifier(opts ...Option) *MLPClassifier {
	m := &MLPClassifier{
		state:            model.NewStateManager(),
		hiddenLayerSizes: []int{100},
		activation:       "relu",
		alpha:            1e-4,
		learningRate:     1e-3,
		maxIter:          200,
		tol:              1e-4,
		nIterNoChange:    10,
		shuffle:          true,
		beta1:            0.9,
		beta2:            0.999,
		epsilon:          1e-8,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MLPClassifier) validateParams() error {
	switch m.activation {
	case "relu", "tanh", "logistic":
	default:
		return errors.NewValidationError("activation", "must be 'relu', 'tanh' or 'logistic'", m.activation)
	}
	for _, s := range m.hiddenLayerSizes {
		if s < 1 {
			return errors.NewValidationError("hidden_layer_sizes", "every layer needs at least one unit", m.hiddenLayerSizes)
		}
	}
	if m.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", m.maxIter)
	}
	if m.learningRate <= 0 {
		return errors.NewValidationError("learning_rate_init", "must be positive", m.learningRate)
	}
	if m.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", m.alpha)
	}
	return nil
}

func (m *MLPClassifier) activate(z *mat.Dense) {
	switch m.activation {
	case "tanh":
		z.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
	case "logistic":
		z.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, z)
	default:
		z.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
	}
}

// derivative multiplies delta in place by the activation derivative,
// expressed in terms of the activation output a.
func (m *MLPClassifier) derivative(a, delta *mat.Dense) {
	switch m.activation {
	case "tanh":
		delta.Apply(func(i, j int, d float64) float64 {
			v := a.At(i, j)
			return d * (1 - v*v)
		}, delta)
	case "logistic":
		delta.Apply(func(i, j int, d float64) float64 {
			v := a.At(i, j)
			return d * v * (1 - v)
		}, delta)
	default:
		delta.Apply(func(i, j int, d float64) float64 {
			if a.At(i, j) <= 0 {
				return 0
			}
			return d
		}, delta)
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// softmaxRows normalises each row of z into a probability distribution.
func softmaxRows(z *mat.Dense) {
	r, _ := z.Dims()
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		maxV := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - maxV)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

// forward returns the activations of every layer, input first.
func (m *MLPClassifier) forward(X *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, len(m.coefs_)+1)
	acts[0] = X
	last := len(m.coefs_) - 1
	for l, W := range m.coefs_ {
		var z mat.Dense
		z.Mul(acts[l], W)
		b := m.intercepts_[l]
		z.Apply(func(_, j int, v float64) float64 { return v + b[j] }, &z)
		switch {
		case l < last:
			m.activate(&z)
		case z.RawMatrix().Cols == 1:
			z.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, &z)
		default:
			softmaxRows(&z)
		}
		acts[l+1] = &z
	}
	return acts
}

func (m *MLPClassifier) initWeights(layerSizes []int, rng *rand.Rand) {
	m.coefs_ = make([]*mat.Dense, len(layerSizes)-1)
	m.intercepts_ = make([][]float64, len(layerSizes)-1)
	factor := 6.0
	if m.activation == "logistic" {
		factor = 2.0
	}
	for l := 0; l < len(layerSizes)-1; l++ {
		fanIn, fanOut := layerSizes[l], layerSizes[l+1]
		bound := math.Sqrt(factor / float64(fanIn+fanOut))
		W := mat.NewDense(fanIn, fanOut, nil)
		W.Apply(func(_, _ int, _ float64) float64 { return (2*rng.Float64() - 1) * bound }, W)
		b := make([]float64, fanOut)
		for j := range b {
			b[j] = (2*rng.Float64() - 1) * bound
		}
		m.coefs_[l] = W
		m.intercepts_[l] = b
	}
}

// adam keeps the first and second moment estimates for every parameter.
type adam struct {
	mW, vW []*mat.Dense
	mB, vB [][]float64
	t      int
}

func newAdam(coefs []*mat.Dense, intercepts [][]float64) *adam {
	a := &adam{}
	for l, W := range coefs {
		r, c := W.Dims()
		a.mW = append(a.mW, mat.NewDense(r, c, nil))
		a.vW = append(a.vW, mat.NewDense(r, c, nil))
		a.mB = append(a.mB, make([]float64, len(intercepts[l])))
		a.vB = append(a.vB, make([]float64, len(intercepts[l])))
	}
	return a
}

func (m *MLPClassifier) adamStep(opt *adam, gradW []*mat.Dense, gradB [][]float64) {
	opt.t++
	t := float64(opt.t)
	lr := m.learningRate * math.Sqrt(1-math.Pow(m.beta2, t)) / (1 - math.Pow(m.beta1, t))
	update := func(p, g, mo, ve []float64) {
		for i := range p {
			mo[i] = m.beta1*mo[i] + (1-m.beta1)*g[i]
			ve[i] = m.beta2*ve[i] + (1-m.beta2)*g[i]*g[i]
			p[i] -= lr * mo[i] / (math.Sqrt(ve[i]) + m.epsilon)
		}
	}
	for l := range m.coefs_ {
		update(m.coefs_[l].RawMatrix().Data, gradW[l].RawMatrix().Data, opt.mW[l].RawMatrix().Data, opt.vW[l].RawMatrix().Data)
		update(m.intercepts_[l], gradB[l], opt.mB[l], opt.vB[l])
	}
}

// lossAndGradients runs one forward/backward pass over a minibatch.
func (m *MLPClassifier) lossAndGradients(Xb, Yb *mat.Dense) (float64, []*mat.Dense, [][]float64) {
	n, _ := Xb.Dims()
	acts := m.forward(Xb)
	out := acts[len(acts)-1]

	loss := crossEntropy(Yb, out)
	l2 := 0.0
	for _, W := range m.coefs_ {
		l2 += floats.Dot(W.RawMatrix().Data, W.RawMatrix().Data)
	}
	loss += 0.5 * m.alpha * l2 / float64(n)

	nLayers := len(m.coefs_)
	gradW := make([]*mat.Dense, nLayers)
	gradB := make([][]float64, nLayers)

	var delta mat.Dense
	delta.Sub(out, Yb)
	for l := nLayers - 1; l >= 0; l-- {
		var gW mat.Dense
		gW.Mul(acts[l].T(), &delta)
		gW.Apply(func(i, j int, v float64) float64 {
			return (v + m.alpha*m.coefs_[l].At(i, j)) / float64(n)
		}, &gW)
		gradW[l] = &gW

		_, c := delta.Dims()
		gb := make([]float64, c)
		for j := 0; j < c; j++ {
			gb[j] = floats.Sum(mat.Col(nil, j, &delta)) / float64(n)
		}
		gradB[l] = gb

		if l > 0 {
			var next mat.Dense
			next.Mul(&delta, m.coefs_[l].T())
			m.derivative(acts[l], &next)
			delta = next
		}
	}
	return loss, gradW, gradB
}

func crossEntropy(Y, P *mat.Dense) float64 {
	const eps = 1e-15
	n, c := Y.Dims()
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			p := math.Min(math.Max(P.At(i, j), eps), 1-eps)
			y := Y.At(i, j)
			if c == 1 {
				total -= y*math.Log(p) + (1-y)*math.Log(1-p)
			} else if y > 0 {
				total -= y * math.Log(p)
			}
		}
	}
	return total / float64(n)
}

// encodeTargets builds the output-layer target matrix: a single 0/1 column
// for two classes, one-hot otherwise.
func encodeTargets(labels, classes []float64) *mat.Dense {
	index := model.ClassIndex(classes)
	if len(classes) == 2 {
		Y := mat.NewDense(len(labels), 1, nil)
		for i, l := range labels {
			Y.Set(i, 0, float64(index[l]))
		}
		return Y
	}
	Y := mat.NewDense(len(labels), len(classes), nil)
	for i, l := range labels {
		Y.Set(i, index[l], 1)
	}
	return Y
}

// Fit trains the network with minibatch Adam. Training stops early when the
// epoch loss has not improved by tol for more than n_iter_no_change epochs;
// otherwise a ConvergenceWarning is emitted after max_iter epochs.
func (m *MLPClassifier) Fit(X, y mat.Matrix) error {
	if err := m.validateParams(); err != nil {
		return err
	}
	labels, err := model.ValidateFitInput("MLPClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueSorted(labels)
	if len(classes) < 2 {
		return errors.NewValueError("MLPClassifier.Fit", "need samples of at least 2 classes")
	}
	m.Reset()

	n, nFeatures := X.Dims()
	Xd := mat.DenseCopyOf(X)
	Y := encodeTargets(labels, classes)
	_, nOut := Y.Dims()

	rng := rand.New(rand.NewPCG(uint64(m.randomState), uint64(m.randomState)))
	layerSizes := append(append([]int{nFeatures}, m.hiddenLayerSizes...), nOut)
	m.initWeights(layerSizes, rng)
	opt := newAdam(m.coefs_, m.intercepts_)

	batchSize := m.batchSize
	if batchSize <= 0 {
		batchSize = min(200, n)
	}
	batchSize = min(batchSize, n)

	logger := log.GetLoggerWithName("neural_network").With(log.ModelNameKey, "MLPClassifier")
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	bestLoss := math.Inf(1)
	noImprovement := 0

	for epoch := 0; epoch < m.maxIter; epoch++ {
		if m.shuffle {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		accumulated := 0.0
		for start := 0; start < n; start += batchSize {
			end := start + batchSize
			if end > n {
				end = n
			}
			Xb, Yb := gatherRows(Xd, order[start:end]), gatherRows(Y, order[start:end])
			loss, gradW, gradB := m.lossAndGradients(Xb, Yb)
			m.adamStep(opt, gradW, gradB)
			accumulated += loss * float64(end-start)
		}
		if err := m.checkWeights(epoch + 1); err != nil {
			return err
		}
		epochLoss := accumulated / float64(n)
		if err := errors.CheckScalar("MLPClassifier.Fit", epochLoss, epoch+1); err != nil {
			return err
		}
		m.lossCurve_ = append(m.lossCurve_, epochLoss)
		m.nIter_ = epoch + 1

		if epochLoss > bestLoss-m.tol {
			noImprovement++
		} else {
			noImprovement = 0
		}
		if epochLoss < bestLoss {
			bestLoss = epochLoss
		}
		if noImprovement > m.nIterNoChange {
			m.converged_ = true
			logger.Debug("training converged",
				log.IterationKey, m.nIter_,
				log.LossKey, epochLoss,
			)
			break
		}
	}

	if !m.converged_ {
		errors.Warn(errors.NewConvergenceWarning("MLPClassifier", m.maxIter,
			"maximum iterations reached and the optimization hasn't converged yet"))
	}

	m.state.SetClasses(classes)
	m.state.SetDimensions(nFeatures, n)
	m.state.SetFitted()
	return nil
}

// checkWeights fails when an Adam step left a non-finite weight or bias.
func (m *MLPClassifier) checkWeights(epoch int) error {
	for l, W := range m.coefs_ {
		if err := errors.CheckMatrix("MLPClassifier.Fit.coefs", W, epoch); err != nil {
			return errors.Wrapf(err, "layer %d", l)
		}
		if err := errors.CheckNumericalStability("MLPClassifier.Fit.intercepts", m.intercepts_[l], epoch); err != nil {
			return errors.Wrapf(err, "layer %d", l)
		}
	}
	return nil
}

func gatherRows(src *mat.Dense, idx []int) *mat.Dense {
	_, c := src.Dims()
	dst := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		dst.SetRow(i, src.RawRowView(r))
	}
	return dst
}

// PredictProba returns class probabilities, one column per class.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("MLPClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := m.state.RequireFeatures("MLPClassifier.PredictProba", cols); err != nil {
		return nil, err
	}
	acts := m.forward(mat.DenseCopyOf(X))
	out := acts[len(acts)-1]
	if _, c := out.Dims(); c > 1 {
		return out, nil
	}
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := out.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns the most probable class for each sample.
func (m *MLPClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	classes := m.state.Classes()
	rows, _ := proba.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, classes[floats.MaxIdx(mat.Row(nil, i, proba))])
	}
	return out, nil
}

// Classes returns the sorted labels seen during Fit.
func (m *MLPClassifier) Classes() []float64 {
	return m.state.Classes()
}

// IsFitted reports whether the network has been trained.
func (m *MLPClassifier) IsFitted() bool {
	return m.state.IsFitted()
}

// Reset discards the trained weights and keeps the hyperparameters.
func (m *MLPClassifier) Reset() {
	m.state.Reset()
	m.coefs_, m.intercepts_ = nil, nil
	m.lossCurve_ = nil
	m.nIter_ = 0
	m.converged_ = false
}

// LossCurve returns the mean training loss of every epoch.
func (m *MLPClassifier) LossCurve() []float64 {
	return append([]float64(nil), m.lossCurve_...)
}

// NIter returns the number of epochs run by the last Fit.
func (m *MLPClassifier) NIter() int {
	return m.nIter_
}

// Converged reports whether the last Fit stopped before max_iter.
func (m *MLPClassifier) Converged() bool {
	return m.converged_
}

// GetParams returns the hyperparameters.
func (m *MLPClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_layer_sizes": fmt.Sprint(m.hiddenLayerSizes),
		"activation":         m.activation,
		"solver":             "adam",
		"alpha":              m.alpha,
		"batch_size":         m.batchSize,
		"learning_rate_init": m.learningRate,
		"max_iter":           m.maxIter,
		"tol":                m.tol,
		"n_iter_no_change":   m.nIterNoChange,
		"shuffle":            m.shuffle,
		"random_state":       m.randomState,
	}
}
