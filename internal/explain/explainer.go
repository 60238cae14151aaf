// Package explain attributes a single prediction to the words of its input text.
//
// The explainer perturbs the text by masking random subsets of its distinct words,
// scores every variant through a PredictFunc, weights variants by their proximity to
// the original and fits a weighted ridge regression on the word-presence indicators.
// The ridge coefficients are the attributions.
package explain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ppiankov/newsprobe/internal/model"
)

// PredictFunc scores a batch of raw texts. It must return one distribution per text, in order.
type PredictFunc func(ctx context.Context, texts []string) ([]model.Proba, error)

// Feature selection strategies
const (
	SelectAuto           = "auto"
	SelectForward        = "forward"
	SelectHighestWeights = "highest_weights"
	SelectNone           = "none"
)

// ErrInvalidNumFeatures is returned when fewer than one attribution is requested
var ErrInvalidNumFeatures = errors.New("num_features must be at least 1")

// Options controls sampling and the surrogate model
type Options struct {
	NumSamples       int     // Perturbed variants, including the original
	KernelWidth      float64 // Exponential kernel width over cosine distance x 100
	FeatureSelection string  // auto, forward, highest_weights, none
	MaskString       string  // Replacement for masked words; empty drops them
	Seed             uint64
}

// DefaultOptions returns 5000 samples, kernel width 25 and auto selection
func DefaultOptions() Options {
	return Options{
		NumSamples:       5000,
		KernelWidth:      25,
		FeatureSelection: SelectAuto,
		Seed:             42,
	}
}

// Explainer holds only configuration; every call owns its RNG and buffers,
// so one Explainer can serve concurrent requests.
type Explainer struct {
	opts Options
}

// NewExplainer creates an explainer, filling zero options with defaults
func NewExplainer(opts Options) *Explainer {
	def := DefaultOptions()
	if opts.NumSamples < 2 {
		opts.NumSamples = def.NumSamples
	}
	if opts.KernelWidth <= 0 {
		opts.KernelWidth = def.KernelWidth
	}
	if opts.FeatureSelection == "" {
		opts.FeatureSelection = def.FeatureSelection
	}
	return &Explainer{opts: opts}
}

// Options returns the effective options
func (e *Explainer) Options() Options {
	return e.opts
}

// Explain returns at most numFeatures attributions toward the class predicted for text,
// ranked by absolute weight (ties keep first-occurrence order).
func (e *Explainer) Explain(ctx context.Context, text string, fn PredictFunc, numFeatures int) (*model.Explanation, error) {
	if numFeatures < 1 {
		return nil, ErrInvalidNumFeatures
	}
	if fn == nil {
		return nil, fmt.Errorf("explain: nil predict function")
	}

	doc := newIndexedText(text)
	d := doc.NumWords()
	if d == 0 {
		probas, err := fn(ctx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("explain: predict: %w", err)
		}
		if len(probas) != 1 {
			return nil, fmt.Errorf("explain: predict returned %d rows for 1 text", len(probas))
		}
		target := probas[0].Label()
		return &model.Explanation{
			Target:          target,
			Attributions:    []model.Attribution{},
			Intercept:       probas[0][target],
			Score:           1,
			LocalPrediction: probas[0][target],
			NumSamples:      1,
		}, nil
	}

	rng := rand.New(rand.NewPCG(e.opts.Seed, e.opts.Seed))
	set, err := sample(ctx, doc, e.opts.NumSamples, e.opts.MaskString, rng)
	if err != nil {
		return nil, err
	}

	probas, err := fn(ctx, set.texts)
	if err != nil {
		return nil, fmt.Errorf("explain: predict: %w", err)
	}
	if len(probas) != len(set.texts) {
		return nil, fmt.Errorf("explain: predict returned %d rows for %d texts", len(probas), len(set.texts))
	}

	target := probas[0].Label()
	y := make([]float64, len(probas))
	for i, p := range probas {
		y[i] = p[target]
	}
	weights := kernelWeights(set.kept, d, e.opts.KernelWidth)

	k := min(numFeatures, d)
	selected, err := selectFeatures(ctx, set.data, y, weights, k, e.opts.FeatureSelection)
	if err != nil {
		return nil, err
	}

	fit, err := weightedRidge(set.data, y, weights, selected, 1.0)
	if err != nil {
		return nil, fmt.Errorf("explain: surrogate fit: %w", err)
	}

	attrs := make([]model.Attribution, len(selected))
	order := make([]int, len(selected))
	local := fit.Intercept
	for i, col := range selected {
		order[i] = i
		attrs[i] = model.Attribution{Word: doc.Word(col), Weight: fit.Coef[i]}
		local += fit.Coef[i] // the original row keeps every word
	}
	sort.SliceStable(order, func(a, b int) bool {
		wa, wb := math.Abs(attrs[order[a]].Weight), math.Abs(attrs[order[b]].Weight)
		if wa != wb {
			return wa > wb
		}
		return selected[order[a]] < selected[order[b]]
	})

	ranked := make([]model.Attribution, 0, k)
	for _, i := range order[:min(k, len(order))] {
		ranked = append(ranked, attrs[i])
	}

	return &model.Explanation{
		Target:          target,
		Attributions:    ranked,
		Intercept:       fit.Intercept,
		Score:           fit.Score,
		LocalPrediction: local,
		NumSamples:      len(set.texts),
		NumWords:        d,
	}, nil
}

// kernelWeights maps each row's cosine distance to the original onto sqrt(exp(-d^2/w^2)).
// Rows are binary keep-vectors and the original keeps all d words, so the
// cosine similarity of a row keeping m words is sqrt(m/d).
func kernelWeights(kept []int, d int, width float64) []float64 {
	out := make([]float64, len(kept))
	for i, m := range kept {
		dist := (1 - math.Sqrt(float64(m)/float64(d))) * 100
		out[i] = math.Sqrt(math.Exp(-(dist * dist) / (width * width)))
	}
	return out
}
