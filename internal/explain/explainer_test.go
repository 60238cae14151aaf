package explain

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/newsprobe/internal/model"
)

// linearFake scores P(fake) as a linear function of word presence
func linearFake(contrib map[string]float64, base float64, calls *int) PredictFunc {
	return func(ctx context.Context, texts []string) ([]model.Proba, error) {
		if calls != nil {
			*calls++
		}
		out := make([]model.Proba, len(texts))
		for i, t := range texts {
			p := base
			seen := map[string]bool{}
			for _, w := range strings.Fields(t) {
				if !seen[w] {
					p += contrib[w]
					seen[w] = true
				}
			}
			p = math.Min(math.Max(p, 0), 1)
			out[i] = model.Proba{p, 1 - p}
		}
		return out, nil
	}
}

func smallExplainer(selection string) *Explainer {
	return NewExplainer(Options{NumSamples: 800, KernelWidth: 25, FeatureSelection: selection, Seed: 7})
}

func TestExplain_RecoversLinearContributions(t *testing.T) {
	req := require.New(t)
	calls := 0
	fn := linearFake(map[string]float64{"shocking": 0.6, "news": 0.1}, 0.2, &calls)

	exp, err := smallExplainer(SelectAuto).Explain(context.Background(), "shocking news today shocking", fn, 2)
	req.NoError(err)
	req.Equal(1, calls, "all variants are scored in one batch")

	req.Equal(model.LabelFake, exp.Target)
	req.Equal(3, exp.NumWords)
	req.Equal(800, exp.NumSamples)
	req.Len(exp.Attributions, 2)
	req.Equal("shocking", exp.Attributions[0].Word)
	req.InDelta(0.6, exp.Attributions[0].Weight, 0.02)
	req.Equal("news", exp.Attributions[1].Word)
	req.InDelta(0.1, exp.Attributions[1].Weight, 0.02)
	req.InDelta(0.9, exp.LocalPrediction, 0.02)
	req.Greater(exp.Score, 0.99)
}

func TestExplain_TargetIsPredictedClass(t *testing.T) {
	req := require.New(t)
	// P(fake) = 0.4 - 0.3*[official]: the original is predicted real
	fn := linearFake(map[string]float64{"official": -0.3}, 0.4, nil)

	exp, err := smallExplainer(SelectAuto).Explain(context.Background(), "official statement", fn, 5)
	req.NoError(err)
	req.Equal(model.LabelReal, exp.Target)
	req.Equal("official", exp.Attributions[0].Word)
	req.Greater(exp.Attributions[0].Weight, 0.0, "official supports the real class")
}

func TestExplain_BoundsAndOrdering(t *testing.T) {
	contrib := map[string]float64{}
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliet", "kilo", "lima"}
	for i, w := range words {
		contrib[w] = 0.01 * float64(i%5)
	}
	fn := linearFake(contrib, 0.05, nil)
	text := strings.Join(words, " ")

	for _, sel := range []string{SelectAuto, SelectForward, SelectHighestWeights, SelectNone} {
		t.Run(sel, func(t *testing.T) {
			req := require.New(t)
			for _, n := range []int{1, 3, 8, 20} {
				exp, err := smallExplainer(sel).Explain(context.Background(), text, fn, n)
				req.NoError(err)
				req.LessOrEqual(len(exp.Attributions), n)
				req.LessOrEqual(len(exp.Attributions), len(words))
				for i := 1; i < len(exp.Attributions); i++ {
					req.GreaterOrEqual(math.Abs(exp.Attributions[i-1].Weight), math.Abs(exp.Attributions[i].Weight))
				}
			}
		})
	}
}

func TestExplain_FewerWordsThanRequested(t *testing.T) {
	req := require.New(t)
	fn := linearFake(map[string]float64{"alpha": 0.3}, 0.1, nil)

	exp, err := smallExplainer(SelectAuto).Explain(context.Background(), "alpha beta alpha", fn, 10)
	req.NoError(err)
	req.Len(exp.Attributions, 2)
	req.Equal(2, exp.NumWords)
}

func TestExplain_SingleWord(t *testing.T) {
	req := require.New(t)
	fn := linearFake(map[string]float64{"shocking": 0.5}, 0.3, nil)

	exp, err := smallExplainer(SelectAuto).Explain(context.Background(), "shocking shocking shocking", fn, 10)
	req.NoError(err)
	req.Len(exp.Attributions, 1)
	req.Equal("shocking", exp.Attributions[0].Word)
	req.Greater(exp.Attributions[0].Weight, 0.0)
}

func TestExplain_EmptyText(t *testing.T) {
	req := require.New(t)
	calls := 0
	fn := linearFake(nil, 0.7, &calls)

	exp, err := smallExplainer(SelectAuto).Explain(context.Background(), "   ", fn, 10)
	req.NoError(err)
	req.Empty(exp.Attributions)
	req.Equal(0, exp.NumWords)
	req.Equal(model.LabelFake, exp.Target)
	req.Equal(1, calls)
}

func TestExplain_Deterministic(t *testing.T) {
	req := require.New(t)
	fn := linearFake(map[string]float64{"a1": 0.2, "b2": -0.1, "c3": 0.05}, 0.4, nil)
	e := smallExplainer(SelectAuto)

	first, err := e.Explain(context.Background(), "a1 b2 c3 d4", fn, 3)
	req.NoError(err)
	second, err := e.Explain(context.Background(), "a1 b2 c3 d4", fn, 3)
	req.NoError(err)
	req.Equal(first, second)
}

func TestExplain_Errors(t *testing.T) {
	req := require.New(t)
	e := smallExplainer(SelectAuto)
	fn := linearFake(nil, 0.5, nil)

	_, err := e.Explain(context.Background(), "text", fn, 0)
	req.ErrorIs(err, ErrInvalidNumFeatures)

	_, err = e.Explain(context.Background(), "text", nil, 3)
	req.Error(err)

	boom := errors.New("scorer down")
	_, err = e.Explain(context.Background(), "some text", func(context.Context, []string) ([]model.Proba, error) {
		return nil, boom
	}, 3)
	req.ErrorIs(err, boom)

	_, err = e.Explain(context.Background(), "some text", func(context.Context, []string) ([]model.Proba, error) {
		return []model.Proba{{0.5, 0.5}}, nil
	}, 3)
	req.Error(err)

	_, err = NewExplainer(Options{FeatureSelection: "random"}).Explain(context.Background(), "some text", fn, 3)
	req.Error(err)
}

func TestExplain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExplainer(DefaultOptions()).Explain(ctx, "one two three four", linearFake(nil, 0.5, nil), 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIndexedText_Render(t *testing.T) {
	req := require.New(t)
	doc := newIndexedText("the cat saw the dog")
	req.Equal(4, doc.NumWords())
	req.Equal("the", doc.Word(0))

	req.Equal("cat saw dog", doc.Render([]int{0}, ""))
	req.Equal("UNK cat saw UNK dog", doc.Render([]int{0}, "UNK"))
	req.Equal("the cat saw the dog", doc.Render(nil, ""))
}

func TestSample_KeepsAtLeastOneWord(t *testing.T) {
	req := require.New(t)
	doc := newIndexedText("one two three four")
	set, err := sample(context.Background(), doc, 500, "", rand.New(rand.NewPCG(1, 1)))
	req.NoError(err)

	req.Equal(4, set.kept[0])
	for i, m := range set.kept[1:] {
		req.GreaterOrEqual(m, 1, "row %d", i+1)
		req.LessOrEqual(m, 3, "row %d", i+1)
	}

	single, err := sample(context.Background(), newIndexedText("alone"), 10, "", rand.New(rand.NewPCG(1, 1)))
	req.NoError(err)
	for _, m := range single.kept[1:] {
		req.Equal(0, m)
	}
}

func TestKernelWeights(t *testing.T) {
	req := require.New(t)
	w := kernelWeights([]int{4, 1, 0}, 4, 25)
	req.InDelta(1.0, w[0], 1e-12)

	dist := 50.0 // 1 - sqrt(1/4) = 0.5
	req.InDelta(math.Sqrt(math.Exp(-dist*dist/625)), w[1], 1e-12)
	req.InDelta(math.Sqrt(math.Exp(-16)), w[2], 1e-12)
}
