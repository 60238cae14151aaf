package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsprobe/internal/feedback"
	"github.com/ppiankov/newsprobe/internal/inference"
	"github.com/ppiankov/newsprobe/internal/server"
)

var (
	serveAddr  string
	noFeedback bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the predict/explain/feedback JSON API",
	Long: `Serve loads the trained artifacts once and answers JSON requests:

  POST /api/v1/predict   {"text": "..."}
  POST /api/v1/explain   {"text": "...", "num_features": 10}
  POST /api/v1/feedback  {"text": "...", "predicted": 0, "correct": false}
  GET  /healthz

Example:
  newsprobe serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&noFeedback, "no-feedback", false, "disable the feedback endpoint")
	serveCmd.Flags().StringVar(&feedbackFile, "feedback-file", "", "feedback CSV path (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if feedbackFile != "" {
		cfg.Feedback.Path = feedbackFile
	}
	log := newLogger()

	engine, err := inference.Load(cfg, log)
	if err != nil {
		return err
	}

	var sink server.FeedbackSink
	if !noFeedback && cfg.Feedback.Path != "" {
		sink = feedback.NewCSVSink(cfg.Feedback.Path)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded model %s (%d terms)\n", engine.Fingerprint(), engine.Vocabulary())
	fmt.Fprintf(os.Stderr, "✓ Listening on %s\n", cfg.Server.Addr)
	return server.New(engine, sink, cfg.Server, log).ListenAndServe(cmd.Context())
}

// contextWithTimeout derives the command context with a deadline; d <= 0 means none
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), d)
}
