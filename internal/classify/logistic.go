// Package classify implements the binary logistic regression scorer.
package classify

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/ppiankov/newsprobe/internal/features"
	"github.com/ppiankov/newsprobe/internal/model"
)

var (
	// ErrUnfitted is returned when predicting before Fit
	ErrUnfitted = errors.New("unfitted component: classifier has not been fitted")

	// ErrSingleClass is returned when the training labels contain only one class
	ErrSingleClass = errors.New("training labels contain a single class")
)

// Options controls fitting
type Options struct {
	C         float64 // Inverse L2 regularization strength
	MaxIter   int     // Optimizer iteration cap
	Tolerance float64 // Gradient norm threshold
}

// DefaultOptions mirrors the training defaults (C=1, 1000 iterations)
func DefaultOptions() Options {
	return Options{C: 1.0, MaxIter: 1000, Tolerance: 1e-4}
}

// FitStats describes the optimizer outcome
type FitStats struct {
	Converged  bool
	Iterations int
	Loss       float64
	Status     string
}

// Logistic is an L2-regularized logistic regression over sparse TF-IDF vectors.
// Label 1 (real) is the positive class. After Fit it is read-only.
type Logistic struct {
	opts    Options
	weights []float64
	bias    float64
	fitted  bool
}

// NewLogistic creates an unfitted classifier
func NewLogistic(opts Options) *Logistic {
	if opts.C <= 0 {
		opts.C = 1.0
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 1000
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-4
	}
	return &Logistic{opts: opts}
}

// Fitted reports whether parameters are available
func (m *Logistic) Fitted() bool {
	return m.fitted
}

// Weights returns a copy of the weight vector
func (m *Logistic) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

// Bias returns the intercept
func (m *Logistic) Bias() float64 {
	return m.bias
}

// Dim returns the expected feature dimension
func (m *Logistic) Dim() int {
	return len(m.weights)
}

// Fit estimates parameters by penalized maximum likelihood with L-BFGS.
// Hitting the iteration cap is not an error: FitStats.Converged is false and the best
// parameters found are kept.
func (m *Logistic) Fit(X []features.Vector, y []model.Label) (*FitStats, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("fit: no samples")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("fit: %d samples but %d labels", len(X), len(y))
	}

	dim := X[0].Dim
	var seen [2]bool
	targets := make([]float64, len(y))
	for i, label := range y {
		if !label.Valid() {
			return nil, fmt.Errorf("fit: invalid label %d at row %d", label, i)
		}
		if X[i].Dim != dim {
			return nil, fmt.Errorf("fit: row %d has dimension %d, expected %d", i, X[i].Dim, dim)
		}
		seen[label] = true
		targets[i] = float64(label)
	}
	if !seen[model.LabelFake] || !seen[model.LabelReal] {
		return nil, ErrSingleClass
	}

	obj := &objective{X: X, y: targets, dim: dim, invC: 1 / m.opts.C}
	problem := optimize.Problem{
		Func: obj.loss,
		Grad: obj.grad,
	}
	settings := &optimize.Settings{
		MajorIterations:   m.opts.MaxIter,
		GradientThreshold: m.opts.Tolerance,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
	}

	x0 := make([]float64, dim+1)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("fit: optimizer: %w", err)
	}

	stats := &FitStats{
		Iterations: result.Stats.MajorIterations,
		Loss:       result.F,
		Status:     result.Status.String(),
		Converged:  err == nil && converged(result.Status),
	}

	params := result.X
	if len(params) != dim+1 {
		return nil, fmt.Errorf("fit: optimizer returned %d parameters, expected %d", len(params), dim+1)
	}
	m.weights = append([]float64(nil), params[:dim]...)
	m.bias = params[dim]
	m.fitted = true
	return stats, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.MethodConverge, optimize.GradientThreshold,
		optimize.FunctionConvergence, optimize.StepConvergence, optimize.FunctionThreshold:
		return true
	default:
		return false
	}
}

// PredictProba returns [P(fake), P(real)] for every vector
func (m *Logistic) PredictProba(X []features.Vector) ([]model.Proba, error) {
	if !m.fitted {
		return nil, ErrUnfitted
	}
	out := make([]model.Proba, len(X))
	for i, x := range X {
		if x.Dim != len(m.weights) {
			return nil, fmt.Errorf("predict: row %d has dimension %d, expected %d", i, x.Dim, len(m.weights))
		}
		p := sigmoid(x.Dot(m.weights) + m.bias)
		out[i] = model.Proba{1 - p, p}
	}
	return out, nil
}

// Predict returns the argmax label for every vector
func (m *Logistic) Predict(X []features.Vector) ([]model.Label, error) {
	probas, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := make([]model.Label, len(probas))
	for i, p := range probas {
		labels[i] = p.Label()
	}
	return labels, nil
}

// objective is the penalized negative log-likelihood.
// Parameters are laid out as [w_0 .. w_{dim-1}, bias]; the bias is not penalized.
type objective struct {
	X    []features.Vector
	y    []float64
	dim  int
	invC float64
}

func (o *objective) loss(params []float64) float64 {
	w, b := params[:o.dim], params[o.dim]
	var sum float64
	for i, x := range o.X {
		z := x.Dot(w) + b
		// -log p(y|z) = softplus(z) - y*z
		sum += softplus(z) - o.y[i]*z
	}
	var reg float64
	for _, wj := range w {
		reg += wj * wj
	}
	return sum + 0.5*o.invC*reg
}

func (o *objective) grad(grad, params []float64) {
	w, b := params[:o.dim], params[o.dim]
	for j := range grad {
		grad[j] = 0
	}
	for i, x := range o.X {
		r := sigmoid(x.Dot(w)+b) - o.y[i]
		for k, idx := range x.Indices {
			grad[idx] += r * x.Values[k]
		}
		grad[o.dim] += r
	}
	for j := 0; j < o.dim; j++ {
		grad[j] += o.invC * w[j]
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

type snapshot struct {
	Version int
	Options Options
	Weights []float64
	Bias    float64
}

const snapshotVersion = 1

// MarshalBinary implements encoding.BinaryMarshaler
func (m *Logistic) MarshalBinary() ([]byte, error) {
	if !m.fitted {
		return nil, ErrUnfitted
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Version: snapshotVersion,
		Options: m.opts,
		Weights: m.weights,
		Bias:    m.bias,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classifier: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (m *Logistic) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("decode classifier: %w", err)
	}
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported classifier version %d", s.Version)
	}
	if len(s.Weights) == 0 {
		return fmt.Errorf("corrupt classifier: empty weight vector")
	}
	m.opts = s.Options
	m.weights = s.Weights
	m.bias = s.Bias
	m.fitted = true
	return nil
}
