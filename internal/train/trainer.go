// Package train fits the vectorizer and classifier from labeled corpora.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/newsprobe/internal/classify"
	"github.com/ppiankov/newsprobe/internal/corpus"
	"github.com/ppiankov/newsprobe/internal/features"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/text"
)

// ErrTooSmall is returned when the corpus cannot be split into non-empty partitions
var ErrTooSmall = errors.New("corpus too small to split")

// Trainer runs the training pipeline
type Trainer struct {
	cfg        *model.Config
	normalizer *text.Normalizer
	log        *slog.Logger
}

// Result holds the fitted components and their evaluation
type Result struct {
	Vectorizer *features.Vectorizer
	Classifier *classify.Logistic
	Evaluation model.Evaluation
	Stats      *classify.FitStats
	Summary    model.TrainingSummary

	Documents []model.Document // Combined corpus in load order
	Cleaned   []string         // Normalized text, parallel to Documents
}

// NewTrainer creates a trainer; a nil logger discards output
func NewTrainer(cfg *model.Config, log *slog.Logger) *Trainer {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Trainer{
		cfg:        cfg,
		normalizer: text.NewNormalizer(),
		log:        log,
	}
}

// Train drains both sources, fits on the train partition and evaluates on the test partition.
// Every document from fakeSrc is labeled 0 and every document from realSrc is labeled 1.
func (t *Trainer) Train(ctx context.Context, fakeSrc, realSrc corpus.Source) (*Result, error) {
	started := time.Now()

	fakeDocs, err := collect(ctx, fakeSrc, model.LabelFake)
	if err != nil {
		return nil, fmt.Errorf("load fake corpus: %w", err)
	}
	realDocs, err := collect(ctx, realSrc, model.LabelReal)
	if err != nil {
		return nil, fmt.Errorf("load real corpus: %w", err)
	}
	if len(fakeDocs) == 0 || len(realDocs) == 0 {
		return nil, fmt.Errorf("train: %w (fake=%d, real=%d)", classify.ErrSingleClass, len(fakeDocs), len(realDocs))
	}

	docs := append(fakeDocs, realDocs...)
	t.log.Info("corpus loaded", "fake", len(fakeDocs), "real", len(realDocs))

	cleaned := make([]string, len(docs))
	labels := make([]model.Label, len(docs))
	for i, d := range docs {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cleaned[i] = t.normalizer.Normalize(d.Text())
		labels[i] = d.Label
	}

	split, err := Split(len(docs), t.cfg.Training.TestFraction, t.cfg.Training.Seed)
	if err != nil {
		return nil, err
	}
	trainText, trainLabels := pick(cleaned, labels, split.Train)
	testText, testLabels := pick(cleaned, labels, split.Test)

	vec := features.NewVectorizer(features.Options{
		MaxDF:       t.cfg.Vectorizer.MaxDF,
		MinDF:       t.cfg.Vectorizer.MinDF,
		MinTokenLen: t.cfg.Vectorizer.MinTokenLen,
	})
	Xtrain, err := vec.FitTransform(trainText)
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	t.log.Info("vectorizer fitted", "vocabulary", vec.Dim(), "train_docs", len(trainText))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clf := classify.NewLogistic(classify.Options{
		C:         t.cfg.Classifier.C,
		MaxIter:   t.cfg.Classifier.MaxIter,
		Tolerance: t.cfg.Classifier.Tolerance,
	})
	stats, err := clf.Fit(Xtrain, trainLabels)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	if !stats.Converged {
		t.log.Warn("classifier did not converge", "iterations", stats.Iterations, "status", stats.Status)
	} else {
		t.log.Info("classifier fitted", "iterations", stats.Iterations, "loss", stats.Loss)
	}

	Xtest, err := vec.Transform(testText)
	if err != nil {
		return nil, fmt.Errorf("transform test partition: %w", err)
	}
	predicted, err := clf.Predict(Xtest)
	if err != nil {
		return nil, fmt.Errorf("score test partition: %w", err)
	}
	eval := Evaluate(testLabels, predicted)
	t.log.Info("evaluation", "accuracy", eval.Accuracy, "test_docs", eval.Total, "elapsed", time.Since(started))

	return &Result{
		Vectorizer: vec,
		Classifier: clf,
		Evaluation: eval,
		Stats:      stats,
		Summary: model.TrainingSummary{
			TrainedAt:  time.Now().UTC(),
			Documents:  len(docs),
			TrainSize:  len(split.Train),
			TestSize:   len(split.Test),
			Vocabulary: vec.Dim(),
			Iterations: stats.Iterations,
			Converged:  stats.Converged,
			Seed:       t.cfg.Training.Seed,
			Evaluation: eval,
		},
		Documents: docs,
		Cleaned:   cleaned,
	}, nil
}

// collect drains a source and forces the origin label onto every document
func collect(ctx context.Context, src corpus.Source, label model.Label) ([]model.Document, error) {
	if src == nil {
		return nil, nil
	}
	docs, err := corpus.Collect(ctx, src)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Label = label
	}
	return docs, nil
}

func pick(texts []string, labels []model.Label, idx []int) ([]string, []model.Label) {
	outText := make([]string, len(idx))
	outLabels := make([]model.Label, len(idx))
	for i, j := range idx {
		outText[i] = texts[j]
		outLabels[i] = labels[j]
	}
	return outText, outLabels
}
