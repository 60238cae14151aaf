package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsprobe/internal/fetch"
	"github.com/ppiankov/newsprobe/internal/inference"
	"github.com/ppiankov/newsprobe/internal/llm"
	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/render"
)

var (
	inputFile   string
	inputURL    string
	outJSON     string
	outMD       string
	noFooter    bool
	noColor     bool
	noCache     bool
	insecureTLS bool
	timeout     time.Duration
	numFeatures int
	numSamples  int
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict [text...]",
	Short: "Classify one article as Fake or Real",
	Long: `Predict classifies an article given as arguments, a file (--file, "-" for stdin)
or a URL (--url). No explanation is computed.

Example:
  newsprobe predict "Shocking report reveals the truth they hid"
  newsprobe predict --file article.txt --json verdict.json
  newsprobe predict --url https://example.com/news/story`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args, false)
	},
}

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain [text...]",
	Short: "Classify one article and explain which words drove the decision",
	Long: `Explain classifies an article and fits a local surrogate over perturbed copies of
the text to attribute the decision to individual words.

Example:
  newsprobe explain "Officials confirmed the figures on Tuesday" --num-features 5
  newsprobe explain --url https://example.com/news/story --md verdict.md
  newsprobe explain --file article.txt --llm --llm-provider ollama --llm-model llama3.1:8b`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args, true)
	},
}

func init() {
	rootCmd.AddCommand(predictCmd, explainCmd)

	for _, c := range []*cobra.Command{predictCmd, explainCmd} {
		c.Flags().StringVarP(&inputFile, "file", "f", "", `read the article from a file ("-" for stdin)`)
		c.Flags().StringVar(&inputURL, "url", "", "fetch the article from a URL")
		c.Flags().StringVar(&outJSON, "json", "", "write the verdict as JSON to this path")
		c.Flags().StringVar(&outMD, "md", "", "write the verdict as Markdown to this path")
		c.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
		c.Flags().BoolVar(&noColor, "no-color", false, "disable colored terminal output")
		c.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification when fetching --url")
		c.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	}

	explainCmd.Flags().IntVarP(&numFeatures, "num-features", "n", 0, "number of words to report (default from config)")
	explainCmd.Flags().IntVar(&numSamples, "samples", 0, "perturbed samples per explanation (default from config)")
	explainCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the explanation cache")
	explainCmd.Flags().BoolVar(&llmEnabled, "llm", false, "add an LLM narrative (never changes the verdict)")
	explainCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	explainCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applyAnalyzeFlags overlays explicitly set flags on the merged configuration
func applyAnalyzeFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("insecure") {
		cfg.HTTP.InsecureTLS = insecureTLS
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if flags.Changed("no-color") {
		cfg.Output.Color = !noColor
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("samples") && numSamples > 0 {
		cfg.Explain.NumSamples = numSamples
	}
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		if cfg.LLM.Provider == "" {
			cfg.LLM.Provider = "openai"
		}
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
	} else {
		cfg.LLM.Provider = ""
	}
}

func runAnalyze(cmd *cobra.Command, args []string, explain bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cmd, cfg)
	log := newLogger()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	req, err := readRequest(ctx, cfg, args)
	if err != nil {
		return err
	}
	req.Explain = explain
	req.NumFeatures = numFeatures

	engine, err := inference.Load(cfg, log)
	if err != nil {
		return fmt.Errorf("%w\nRun 'newsprobe train' first or point --artifacts-dir at existing artifacts", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d characters with model %s...\n", len(req.Text), engine.Fingerprint())
	}
	verdict, err := engine.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if explain && cfg.LLM.Provider != "" {
		// A provider that fails to start only costs the narrative
		llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ LLM disabled: %v\n", err)
		} else {
			verdict.Narrative = llm.Narrate(ctx, provider, llmCfg, verdict)
			for _, w := range verdict.Narrative.Warnings {
				fmt.Fprintf(os.Stderr, "✗ LLM narrative: %s\n", w)
			}
		}
	}

	return writeVerdict(cfg, verdict)
}

// readRequest resolves the article from --url, --file or the positional arguments
func readRequest(ctx context.Context, cfg *model.Config, args []string) (inference.Request, error) {
	sources := 0
	for _, set := range []bool{inputURL != "", inputFile != "", len(args) > 0} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return inference.Request{}, fmt.Errorf("give exactly one of: text arguments, --file or --url")
	}

	switch {
	case inputURL != "":
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Fetching %s...\n", inputURL)
		}
		article, err := fetch.NewFetcher(cfg.HTTP).FetchArticle(ctx, inputURL)
		if err != nil {
			return inference.Request{}, fmt.Errorf("fetch article: %w", err)
		}
		if article.Truncated {
			fmt.Fprintf(os.Stderr, "✗ Page exceeded %d bytes; the article may be incomplete\n", cfg.HTTP.MaxBodyBytes)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Extracted %q (%d characters)\n", article.Title, len(article.Body))
		}
		return inference.Request{Text: article.Text(), Subject: article.Subject, SourceURL: article.URL}, nil

	case inputFile != "":
		var data []byte
		var err error
		if inputFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(inputFile)
		}
		if err != nil {
			return inference.Request{}, fmt.Errorf("read article: %w", err)
		}
		return inference.Request{Text: string(data)}, nil

	default:
		return inference.Request{Text: strings.Join(args, " ")}, nil
	}
}

func writeVerdict(cfg *model.Config, verdict *model.Verdict) error {
	r := render.NewRenderer(cfg.Output.IncludeFooter, cfg.Output.Color)

	if outJSON != "" {
		if err := r.RenderJSON(verdict, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	if outMD != "" {
		if err := r.RenderMarkdown(verdict, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)

		if verdict.Narrative != nil && verdict.Narrative.Enabled {
			llmPath := strings.TrimSuffix(outMD, ".md") + ".llm.md"
			if err := r.RenderNarrativeMarkdown(verdict.Narrative, llmPath); err != nil {
				fmt.Fprintf(os.Stderr, "✗ Failed to write LLM narrative: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "✓ Wrote LLM narrative: %s\n", llmPath)
			}
		}
	}

	r.RenderSummary(os.Stdout, verdict)
	return nil
}
