package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsprobe/internal/corpus"
	"github.com/ppiankov/newsprobe/internal/feedback"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/render"
	"github.com/ppiankov/newsprobe/internal/train"
)

var (
	fakePath      string
	realPath      string
	feedbackPath  string
	cleanedPath   string
	summaryPath   string
	seed          uint64
	testFraction  float64
	trainDeadline time.Duration
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the vectorizer and classifier from labeled news files",
	Long: `Train reads a file of fake articles and a file of real articles (CSV with title/text
columns, or JSON lines), normalizes the text, fits TF-IDF features and a logistic
regression on a seeded train split, prints the classification report for the test
split, and saves both artifacts.

Every article in --fake is labeled 0 and every article in --real is labeled 1.

Example:
  newsprobe train --fake Fake.csv --real True.csv
  newsprobe train --fake Fake.csv --real True.csv --feedback user_feedback.csv --cleaned cleaned_news.csv`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&fakePath, "fake", "", "dataset of fake articles (required)")
	trainCmd.Flags().StringVar(&realPath, "real", "", "dataset of real articles (required)")
	trainCmd.Flags().StringVar(&feedbackPath, "feedback", "", "also train on user feedback rows (text,label CSV)")
	trainCmd.Flags().StringVar(&cleanedPath, "cleaned", "", "write the cleaned dataset (text,cleaned_text,label) to this path")
	trainCmd.Flags().StringVar(&summaryPath, "json", "", "write the training summary as JSON to this path")
	trainCmd.Flags().Uint64Var(&seed, "seed", 42, "train/test split seed")
	trainCmd.Flags().Float64Var(&testFraction, "test-fraction", 0.2, "fraction of documents held out for evaluation")
	trainCmd.Flags().DurationVar(&trainDeadline, "timeout", time.Hour, "overall training timeout")
	_ = trainCmd.MarkFlagRequired("fake")
	_ = trainCmd.MarkFlagRequired("real")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Training.Seed = seed
	}
	if cmd.Flags().Changed("test-fraction") {
		cfg.Training.TestFraction = testFraction
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log := newLogger()

	ctx, cancel := contextWithTimeout(cmd, trainDeadline)
	defer cancel()

	fakeSrc, err := corpus.Open(fakePath, model.LabelFake)
	if err != nil {
		return err
	}
	defer func() { _ = corpus.CloseSource(fakeSrc) }()

	realSrc, err := corpus.Open(realPath, model.LabelReal)
	if err != nil {
		return err
	}
	defer func() { _ = corpus.CloseSource(realSrc) }()

	var fakeAll, realAll corpus.Source = fakeSrc, realSrc
	if feedbackPath != "" {
		entries, err := feedback.ReadAll(feedbackPath)
		if err != nil {
			return fmt.Errorf("read feedback: %w", err)
		}
		fakeDocs, realDocs := feedback.Split(entries)
		fakeAll = corpus.Concat(fakeSrc, corpus.NewSliceSource(model.LabelFake, fakeDocs...))
		realAll = corpus.Concat(realSrc, corpus.NewSliceSource(model.LabelReal, realDocs...))
		fmt.Fprintf(os.Stderr, "✓ Loaded %d feedback rows (%d fake, %d real)\n", len(entries), len(fakeDocs), len(realDocs))
	}

	fmt.Fprintf(os.Stderr, "⚙️  Training on %s (fake) and %s (real)...\n", fakePath, realPath)
	res, err := train.NewTrainer(cfg, log).Train(ctx, fakeAll, realAll)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if !res.Summary.Converged {
		fmt.Fprintf(os.Stderr, "✗ Optimizer stopped after %d iterations without converging; using the best parameters found\n", res.Summary.Iterations)
	}

	if err := train.Save(res, cfg.Training); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Saved vectorizer: %s\n", res.Summary.VectorizerURI)
	fmt.Fprintf(os.Stderr, "✓ Saved model: %s\n", res.Summary.ModelURI)

	if cleanedPath != "" {
		if err := train.SaveCleaned(res, cleanedPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote cleaned dataset: %s\n", cleanedPath)
	}

	r := render.NewRenderer(cfg.Output.IncludeFooter, cfg.Output.Color)
	if summaryPath != "" {
		if err := r.RenderJSON(res.Summary, summaryPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote training summary: %s\n", summaryPath)
	}
	r.RenderEvaluation(os.Stdout, res.Summary)
	return nil
}
