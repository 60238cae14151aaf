package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsprobe/internal/fetch"
	"github.com/ppiankov/newsprobe/internal/inference"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/render"
	"github.com/ppiankov/newsprobe/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchExplain bool
	hostRate     float64
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Classify many articles from a file in parallel",
	Long: `Batch classifies one article per line of the input file. A line that is an
http(s) URL is fetched and its article extracted; any other line is classified as
text. Blank lines and # comments are skipped and duplicates are processed once.

Example:
  newsprobe batch articles.txt
  newsprobe batch urls.txt --explain --concurrency 8 --output-dir ./verdicts`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON verdict per input into this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchExplain, "explain", false, "explain every verdict")
	batchCmd.Flags().IntVarP(&numFeatures, "num-features", "n", 0, "number of words to report with --explain")
	batchCmd.Flags().Float64Var(&hostRate, "host-rps", 1, "requests per second per host for URL inputs")
	batchCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification for URL inputs")
	batchCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored terminal output")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cmd, cfg)
	log := newLogger()

	ctx, cancel := contextWithTimeout(cmd, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  newsprobe Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Explain:      %v\n", batchExplain)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	engine, err := inference.Load(cfg, log)
	if err != nil {
		return err
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fetcher := fetch.NewFetcher(cfg.HTTP)
	analyze := func(ctx context.Context, input string) (*model.Verdict, error) {
		req := inference.Request{Text: input, Explain: batchExplain, NumFeatures: numFeatures}
		if worker.IsURL(input) {
			article, err := fetcher.FetchArticle(ctx, input)
			if err != nil {
				return nil, err
			}
			req.Text, req.Subject, req.SourceURL = article.Text(), article.Subject, article.URL
		}
		return engine.Analyze(ctx, req)
	}

	processor := worker.NewBatchProcessor(analyze, concurrency, worker.NewLimiter(hostRate, 2))
	fmt.Fprintf(os.Stderr, "⚙️  Processing inputs with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	r := render.NewRenderer(cfg.Output.IncludeFooter, cfg.Output.Color)
	successCount, failureCount := 0, 0
	counts := [2]int{}
	for i, result := range results {
		if result.Error != nil {
			failureCount++
			continue
		}
		successCount++
		counts[result.Verdict.Prediction.Label]++

		if outputDir != "" {
			path := filepath.Join(outputDir, fmt.Sprintf("%04d-%s.json", i+1, slug(result)))
			if err := r.RenderJSON(result.Verdict, path); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", path, err)
			}
		}
	}
	r.RenderBatch(os.Stdout, results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d (%d fake, %d real)\n", successCount, counts[model.LabelFake], counts[model.LabelReal])
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d inputs failed", failureCount)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// slug derives a short file-name-safe label for one result
func slug(res *worker.ArticleResult) string {
	base := res.Verdict.Subject
	if base == "" {
		base = res.Input
	}
	s := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		s = "article"
	}
	return s
}
