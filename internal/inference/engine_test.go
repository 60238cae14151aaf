package inference

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/newsprobe/internal/artifact"
	"github.com/ppiankov/newsprobe/internal/cache"
	"github.com/ppiankov/newsprobe/internal/corpus"
	"github.com/ppiankov/newsprobe/internal/explain"
	"github.com/ppiankov/newsprobe/internal/features"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/train"
)

func trained(t *testing.T) *train.Result {
	t.Helper()
	fakeTexts := make([]string, 10)
	realTexts := make([]string, 10)
	for i := range fakeTexts {
		fakeTexts[i] = "Shocking shocking report reveals shocking truth"
		realTexts[i] = "Official official report confirms official figures"
	}
	res, err := train.NewTrainer(model.DefaultConfig(), nil).Train(context.Background(),
		corpus.FromTexts(model.LabelFake, fakeTexts...),
		corpus.FromTexts(model.LabelReal, realTexts...),
	)
	require.NoError(t, err)
	return res
}

// countingScorer records how many scoring calls reach the classifier
type countingScorer struct {
	Scorer
	calls atomic.Int32
}

func (c *countingScorer) PredictProba(X []features.Vector) ([]model.Proba, error) {
	c.calls.Add(1)
	return c.Scorer.PredictProba(X)
}

func newEngine(t *testing.T, res *train.Result, opts Options) *Engine {
	t.Helper()
	exp := explain.NewExplainer(explain.Options{NumSamples: 500, Seed: 42})
	e, err := New(res.Vectorizer, res.Classifier, exp, opts)
	require.NoError(t, err)
	return e
}

func TestAnalyze_ShockingIsFake(t *testing.T) {
	req := require.New(t)
	e := newEngine(t, trained(t), Options{})

	v, err := e.Analyze(context.Background(), Request{Text: "shocking shocking shocking", Explain: true})
	req.NoError(err)
	req.Equal(model.LabelFake, v.Prediction.Label)
	req.Equal("Fake", v.Prediction.LabelName)
	req.Greater(v.Prediction.Confidence, 50.0)

	req.NotNil(v.Explanation)
	req.Equal(model.LabelFake, v.Explanation.Target)
	req.NotEmpty(v.Explanation.Attributions)
	req.Equal("shocking", v.Explanation.Attributions[0].Word)
	req.Greater(v.Explanation.Attributions[0].Weight, 0.0)
	req.Equal(e.Fingerprint(), v.Model)
}

func TestAnalyze_OfficialIsReal(t *testing.T) {
	req := require.New(t)
	e := newEngine(t, trained(t), Options{})

	v, err := e.Analyze(context.Background(), Request{Text: "The official figures were confirmed."})
	req.NoError(err)
	req.Equal(model.LabelReal, v.Prediction.Label)
	req.Nil(v.Explanation)
}

func TestAnalyze_RejectsInvalidInput(t *testing.T) {
	e := newEngine(t, trained(t), Options{})

	for _, r := range []Request{
		{Text: ""},
		{Text: "   \n\t"},
		{Text: "ok", NumFeatures: 51},
		{Text: "ok", NumFeatures: -1},
		{Text: "ok", SourceURL: "not a url"},
	} {
		_, err := e.Analyze(context.Background(), r)
		require.ErrorIs(t, err, ErrInvalidInput, "request %+v", r)
	}

	_, err := e.Predict(context.Background(), " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyze_StopwordsOnlyUsesBias(t *testing.T) {
	req := require.New(t)
	res := trained(t)
	e := newEngine(t, res, Options{})

	v, err := e.Analyze(context.Background(), Request{Text: "the a an of"})
	req.NoError(err)

	p := v.Prediction.Proba
	req.InDelta(1.0, p[0]+p[1], 1e-6)
	want := 1 / (1 + math.Exp(-res.Classifier.Bias()))
	req.InDelta(want, p[model.LabelReal], 1e-12)
	req.Contains(v.Warnings, "no known vocabulary words; prediction is driven by the model bias")
}

func TestAnalyze_NonEnglishWarning(t *testing.T) {
	req := require.New(t)
	e := newEngine(t, trained(t), Options{})

	text := "El gobierno anunció hoy nuevas medidas económicas para combatir la inflación y apoyar a las familias más vulnerables del país durante los próximos meses."
	v, err := e.Analyze(context.Background(), Request{Text: text})
	req.NoError(err)
	req.NotEmpty(v.Warnings)
	req.Contains(v.Warnings[0], "trained on English news")
}

func TestAnalyze_Cancelled(t *testing.T) {
	e := newEngine(t, trained(t), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Analyze(ctx, Request{Text: "shocking", Explain: true})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPredictProba_ChunkedMatchesSingleBatch(t *testing.T) {
	req := require.New(t)
	res := trained(t)
	single := newEngine(t, res, Options{Workers: 1})
	chunked := newEngine(t, res, Options{Workers: 3, ChunkSize: 2})

	texts := []string{"shocking", "official", "", "shocking truth", "official figures report", "the", "reveals"}
	want, err := single.PredictProba(context.Background(), texts)
	req.NoError(err)
	got, err := chunked.PredictProba(context.Background(), texts)
	req.NoError(err)
	req.Equal(want, got)

	for _, p := range got {
		req.InDelta(1.0, p[0]+p[1], 1e-6)
	}
}

func TestExplain_UsesCache(t *testing.T) {
	req := require.New(t)
	res := trained(t)
	scorer := &countingScorer{Scorer: res.Classifier}
	e, err := New(res.Vectorizer, scorer, explain.NewExplainer(explain.Options{NumSamples: 200}), Options{
		Cache: cache.NewMemoryCache(time.Minute, time.Minute),
	})
	req.NoError(err)

	first, err := e.Explain(context.Background(), "shocking report today", 3)
	req.NoError(err)
	calls := scorer.calls.Load()
	req.Positive(calls)

	second, err := e.Explain(context.Background(), "shocking report today", 3)
	req.NoError(err)
	req.Equal(calls, scorer.calls.Load(), "second explanation is served from the cache")
	req.Equal(first, second)

	_, err = e.Explain(context.Background(), "shocking report today", 2)
	req.NoError(err)
	req.Greater(scorer.calls.Load(), calls, "a different num_features is a different entry")
}

func TestLoad(t *testing.T) {
	req := require.New(t)
	res := trained(t)

	cfg := model.DefaultConfig()
	cfg.Training.ArtifactsDir = t.TempDir()
	cfg.Cache.Enabled = false
	req.NoError(train.Save(res, cfg.Training))

	e, err := Load(cfg, nil)
	req.NoError(err)
	req.Equal(res.Vectorizer.Dim(), e.Vocabulary())

	again, err := Load(cfg, nil)
	req.NoError(err)
	req.Equal(e.Fingerprint(), again.Fingerprint())

	direct := newEngine(t, res, Options{})
	req.Equal(direct.Fingerprint(), e.Fingerprint())

	cfg.Training.ModelFile = "missing.bin"
	_, err = Load(cfg, nil)
	req.ErrorIs(err, artifact.ErrMissing)
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(nil, nil, nil, Options{})
	require.Error(t, err)
}
