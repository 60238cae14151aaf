package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/newsprobe/internal/model"
)

// AnalyzeFunc turns one batch input (article text or URL) into a verdict
type AnalyzeFunc func(ctx context.Context, input string) (*model.Verdict, error)

// ArticleJob analyzes one input
type ArticleJob struct {
	Input   string
	Analyze AnalyzeFunc
	Limiter *Limiter // optional, applied to URL inputs by host

	index int
}

// Execute implements Job
func (j *ArticleJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil && IsURL(j.Input) {
		if err := j.Limiter.WaitURL(ctx, j.Input); err != nil {
			return &ArticleResult{Input: j.Input, Error: err, index: j.index}
		}
	}

	verdict, err := j.Analyze(ctx, j.Input)
	if err != nil {
		return &ArticleResult{Input: j.Input, Error: err, index: j.index}
	}
	return &ArticleResult{Input: j.Input, Verdict: verdict, index: j.index}
}

// ArticleResult is the outcome of one ArticleJob
type ArticleResult struct {
	Input   string
	Verdict *model.Verdict
	Error   error

	index int
}

// GetError implements Result
func (r *ArticleResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many articles concurrently
type BatchProcessor struct {
	analyze     AnalyzeFunc
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor; limiter may be nil
func NewBatchProcessor(analyze AnalyzeFunc, concurrency int, limiter *Limiter) *BatchProcessor {
	return &BatchProcessor{
		analyze:     analyze,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessInputs analyzes every input and returns one result per input, in input order.
// Inputs never started because ctx was cancelled get the context error.
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*ArticleResult {
	if len(inputs) == 0 {
		return []*ArticleResult{}
	}

	jobs := make([]Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = &ArticleJob{Input: in, Analyze: b.analyze, Limiter: b.limiter, index: i}
	}

	// A cancelled run still yields the finished results; the rest are filled in below
	results, _ := Run(ctx, b.concurrency, jobs)

	out := make([]*ArticleResult, len(inputs))
	for _, r := range results {
		ar := r.(*ArticleResult)
		out[ar.index] = ar
	}
	for i, in := range inputs {
		if out[i] != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &ArticleResult{Input: in, Error: err, index: i}
	}
	return out
}

// ProcessFile reads inputs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ArticleResult, error) {
	inputs, err := ReadLinesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadLinesFromFile reads one input per line, skipping blanks and # comments and
// dropping duplicates while keeping first-seen order
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}

// IsURL reports whether a batch input should be fetched rather than analyzed as text
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}
