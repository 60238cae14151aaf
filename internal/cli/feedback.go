package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsprobe/internal/feedback"
	"github.com/ppiankov/newsprobe/internal/model"
)

var (
	feedbackFile   string
	feedbackLabel  string
	feedbackPred   string
	feedbackWrong  bool
	feedbackInFile string
)

// feedbackCmd represents the feedback command
var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record or inspect user corrections",
	Long: `Feedback rows (text,label) are appended to a CSV file and can be folded into the
next training run with 'newsprobe train --feedback'.`,
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Append one corrected article",
	Long: `Add records the true label of an article, either directly with --label or as a
correction of a prediction with --predicted and --wrong.

Example:
  newsprobe feedback add "Officials confirmed the figures" --label real
  newsprobe feedback add --file article.txt --predicted fake --wrong`,
	RunE: runFeedbackAdd,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the feedback file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := feedbackPathFor(cfg)
		entries, err := feedback.ReadAll(path)
		if err != nil {
			return err
		}
		fakeDocs, realDocs := feedback.Split(entries)
		fmt.Printf("%s: %d rows (%d fake, %d real)\n", path, len(entries), len(fakeDocs), len(realDocs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackAddCmd, feedbackStatsCmd)

	feedbackCmd.PersistentFlags().StringVar(&feedbackFile, "feedback-file", "", "feedback CSV path (default from config)")
	feedbackAddCmd.Flags().StringVarP(&feedbackInFile, "file", "f", "", "read the article from a file")
	feedbackAddCmd.Flags().StringVar(&feedbackLabel, "label", "", "true label (fake, real, 0 or 1)")
	feedbackAddCmd.Flags().StringVar(&feedbackPred, "predicted", "", "label the model predicted (fake, real, 0 or 1)")
	feedbackAddCmd.Flags().BoolVar(&feedbackWrong, "wrong", false, "the predicted label was wrong")
}

func feedbackPathFor(cfg *model.Config) string {
	if feedbackFile != "" {
		return feedbackFile
	}
	return cfg.Feedback.Path
}

func runFeedbackAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	text := ""
	switch {
	case feedbackInFile != "" && len(args) > 0:
		return fmt.Errorf("give the article as arguments or --file, not both")
	case feedbackInFile != "":
		data, err := os.ReadFile(feedbackInFile)
		if err != nil {
			return fmt.Errorf("read article: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}

	var label model.Label
	switch {
	case feedbackLabel != "" && feedbackPred != "":
		return fmt.Errorf("use either --label or --predicted, not both")
	case feedbackLabel != "":
		if label, err = model.ParseLabel(feedbackLabel); err != nil {
			return err
		}
	case feedbackPred != "":
		predicted, err := model.ParseLabel(feedbackPred)
		if err != nil {
			return err
		}
		label = feedback.Correct(predicted, !feedbackWrong)
	default:
		return fmt.Errorf("one of --label or --predicted is required")
	}

	sink := feedback.NewCSVSink(feedbackPathFor(cfg))
	if err := sink.Append(feedback.Entry{Text: text, Label: label}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Recorded %s feedback in %s\n", label, sink.Path())
	return nil
}
