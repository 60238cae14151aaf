// Package inference serves predictions and explanations from loaded artifacts.
package inference

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/ppiankov/newsprobe/internal/artifact"
	"github.com/ppiankov/newsprobe/internal/cache"
	"github.com/ppiankov/newsprobe/internal/classify"
	"github.com/ppiankov/newsprobe/internal/explain"
	"github.com/ppiankov/newsprobe/internal/features"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/text"
	"github.com/ppiankov/newsprobe/internal/worker"
)

// ErrInvalidInput is returned for requests rejected before the model runs
var ErrInvalidInput = errors.New("invalid input")

// Transformer maps normalized documents to feature vectors
type Transformer interface {
	Transform(docs []string) ([]features.Vector, error)
	Dim() int
}

// Scorer maps feature vectors to class distributions
type Scorer interface {
	PredictProba(X []features.Vector) ([]model.Proba, error)
}

// Options configures an Engine
type Options struct {
	Workers     int           // Goroutines used for large batches
	ChunkSize   int           // Texts per job
	NumFeatures int           // Default attribution count
	Cache       cache.Cache   // Explanation cache; nil disables caching
	CacheTTL    time.Duration // 0 uses the cache default
	Fingerprint string        // Model identity; derived from the components when empty
	Logger      *slog.Logger
}

// Engine is the immutable inference context shared by every request.
// All fields are set at construction; methods are safe for concurrent use.
type Engine struct {
	normalizer  *text.Normalizer
	vectorizer  Transformer
	scorer      Scorer
	explainer   *explain.Explainer
	cache       cache.Cache
	cacheTTL    time.Duration
	workers     int
	chunkSize   int
	numFeatures int
	fingerprint string
	validate    *validator.Validate
	log         *slog.Logger
}

// New assembles an engine from fitted components
func New(vec Transformer, scorer Scorer, exp *explain.Explainer, opts Options) (*Engine, error) {
	if vec == nil || scorer == nil {
		return nil, fmt.Errorf("inference: vectorizer and classifier are required")
	}
	if exp == nil {
		exp = explain.NewExplainer(explain.DefaultOptions())
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.NumFeatures <= 0 {
		opts.NumFeatures = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Fingerprint == "" {
		parts := lo.FilterMap([]any{vec, scorer}, func(c any, _ int) (encoding.BinaryMarshaler, bool) {
			m, ok := c.(encoding.BinaryMarshaler)
			return m, ok
		})
		if fp, err := artifact.Fingerprint(parts...); err == nil && len(parts) == 2 {
			opts.Fingerprint = fp
		} else {
			opts.Fingerprint = "unversioned"
		}
	}

	return &Engine{
		normalizer:  text.NewNormalizer(),
		vectorizer:  vec,
		scorer:      scorer,
		explainer:   exp,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		workers:     opts.Workers,
		chunkSize:   opts.ChunkSize,
		numFeatures: opts.NumFeatures,
		fingerprint: opts.Fingerprint,
		validate:    validator.New(),
		log:         opts.Logger,
	}, nil
}

// Load reads both artifacts from cfg.Training and builds the engine.
// A missing or corrupt artifact is returned as an error; callers treat it as fatal.
func Load(cfg *model.Config, log *slog.Logger) (*Engine, error) {
	vecPath := filepath.Join(cfg.Training.ArtifactsDir, cfg.Training.VectorizerFile)
	modelPath := filepath.Join(cfg.Training.ArtifactsDir, cfg.Training.ModelFile)

	vec := features.NewVectorizer(features.Options{})
	if err := artifact.Load(vecPath, artifact.KindVectorizer, vec); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	clf := classify.NewLogistic(classify.Options{})
	if err := artifact.Load(modelPath, artifact.KindClassifier, clf); err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	if vec.Dim() != clf.Dim() {
		return nil, fmt.Errorf("artifact mismatch: vectorizer has %d terms, classifier expects %d", vec.Dim(), clf.Dim())
	}

	fp, err := artifact.Fingerprint(vec, clf)
	if err != nil {
		return nil, fmt.Errorf("fingerprint artifacts: %w", err)
	}

	exp := explain.NewExplainer(explain.Options{
		NumSamples:       cfg.Explain.NumSamples,
		KernelWidth:      cfg.Explain.KernelWidth,
		FeatureSelection: cfg.Explain.FeatureSelection,
		MaskString:       cfg.Explain.MaskString,
		Seed:             cfg.Explain.Seed,
	})

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.Info("artifacts loaded", "vectorizer", vecPath, "model", modelPath, "vocabulary", vec.Dim(), "fingerprint", fp)

	return New(vec, clf, exp, Options{
		Workers:     cfg.Inference.Workers,
		ChunkSize:   cfg.Inference.ChunkSize,
		NumFeatures: cfg.Explain.NumFeatures,
		Cache:       cache.New(cfg.Cache),
		CacheTTL:    cfg.Cache.MemoryTTL,
		Fingerprint: fp,
		Logger:      log,
	})
}

// Fingerprint identifies the loaded artifacts
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Vocabulary returns the size of the feature space
func (e *Engine) Vocabulary() int {
	return e.vectorizer.Dim()
}

// PredictProba normalizes, vectorizes and scores raw texts, preserving order.
// Batches larger than the chunk size are spread across the worker pool.
func (e *Engine) PredictProba(ctx context.Context, texts []string) ([]model.Proba, error) {
	if len(texts) <= e.chunkSize || e.workers == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.score(texts)
	}

	chunks := lo.Chunk(texts, e.chunkSize)
	jobs := make([]worker.Job, len(chunks))
	for i, chunk := range chunks {
		jobs[i] = &scoreJob{engine: e, texts: chunk}
	}

	results, err := worker.Run(ctx, e.workers, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]model.Proba, 0, len(texts))
	for _, r := range results {
		if err := r.GetError(); err != nil {
			return nil, err
		}
		out = append(out, r.(*scoreResult).probas...)
	}
	return out, nil
}

func (e *Engine) score(texts []string) ([]model.Proba, error) {
	X, err := e.vectorizer.Transform(e.normalizer.NormalizeAll(texts))
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	probas, err := e.scorer.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return probas, nil
}

type scoreJob struct {
	engine *Engine
	texts  []string
}

func (j *scoreJob) Execute(ctx context.Context) worker.Result {
	if err := ctx.Err(); err != nil {
		return &scoreResult{err: err}
	}
	probas, err := j.engine.score(j.texts)
	return &scoreResult{probas: probas, err: err}
}

type scoreResult struct {
	probas []model.Proba
	err    error
}

func (r *scoreResult) GetError() error {
	return r.err
}

// Predict classifies one text
func (e *Engine) Predict(ctx context.Context, raw string) (model.Prediction, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Prediction{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	probas, err := e.PredictProba(ctx, []string{raw})
	if err != nil {
		return model.Prediction{}, err
	}
	return model.NewPrediction(probas[0]), nil
}

// Explain attributes the prediction for raw to its words; results are cached per model and input
func (e *Engine) Explain(ctx context.Context, raw string, numFeatures int) (*model.Explanation, error) {
	if numFeatures <= 0 {
		numFeatures = e.numFeatures
	}

	opts := e.explainer.Options()
	key := cache.Key(e.fingerprint, strconv.Itoa(numFeatures), opts.FeatureSelection,
		strconv.Itoa(opts.NumSamples), strconv.FormatUint(opts.Seed, 10), opts.MaskString, raw)
	if e.cache != nil {
		var cached model.Explanation
		if cache.GetJSON(e.cache, key, &cached) {
			e.log.Debug("explanation cache hit", "key", key)
			return &cached, nil
		}
	}

	started := time.Now()
	exp, err := e.explainer.Explain(ctx, raw, e.PredictProba, numFeatures)
	if err != nil {
		return nil, err
	}
	e.log.Debug("explanation computed", "words", exp.NumWords, "samples", exp.NumSamples, "elapsed", time.Since(started))

	if e.cache != nil {
		if err := cache.SetJSON(e.cache, key, exp, e.cacheTTL); err != nil {
			e.log.Warn("cache explanation", "error", err)
		}
	}
	return exp, nil
}
