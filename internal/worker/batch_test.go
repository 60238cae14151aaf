package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/newsprobe/internal/model"
)

// mockAnalyzer labels inputs containing "shocking" as fake
type mockAnalyzer struct {
	shouldError bool
	calls       int32
}

func (m *mockAnalyzer) Analyze(ctx context.Context, input string) (*model.Verdict, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.shouldError {
		return nil, errors.New("analyze error")
	}
	p := model.Proba{0.2, 0.8}
	if strings.Contains(input, "shocking") {
		p = model.Proba{0.9, 0.1}
	}
	return &model.Verdict{Text: input, Prediction: model.NewPrediction(p)}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inputs.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessInputs(t *testing.T) {
	analyzer := &mockAnalyzer{}
	processor := NewBatchProcessor(analyzer.Analyze, 2, nil)

	inputs := []string{"shocking claim", "official figures", "another shocking story"}
	results := processor.ProcessInputs(context.Background(), inputs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []model.Label{model.LabelFake, model.LabelReal, model.LabelFake}
	for i, res := range results {
		if res.Error != nil {
			t.Fatalf("unexpected error for %q: %v", res.Input, res.Error)
		}
		if res.Input != inputs[i] {
			t.Errorf("result %d is for %q, expected %q", i, res.Input, inputs[i])
		}
		if res.Verdict.Prediction.Label != want[i] {
			t.Errorf("input %q: expected %s, got %s", res.Input, want[i], res.Verdict.Prediction.Label)
		}
	}
}

func TestBatchProcessor_ProcessInputs_Error(t *testing.T) {
	processor := NewBatchProcessor((&mockAnalyzer{shouldError: true}).Analyze, 2, nil)

	results := processor.ProcessInputs(context.Background(), []string{"some text"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].GetError() == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Verdict != nil {
		t.Error("expected nil verdict on error")
	}
}

func TestBatchProcessor_ProcessInputs_Empty(t *testing.T) {
	processor := NewBatchProcessor((&mockAnalyzer{}).Analyze, 2, nil)

	results := processor.ProcessInputs(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessInputs_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := &mockAnalyzer{}
	results := NewBatchProcessor(analyzer.Analyze, 2, nil).ProcessInputs(ctx, []string{"a", "b", "c"})

	if len(results) != 3 {
		t.Fatalf("expected a result per input, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %q, got %v", res.Input, res.Error)
		}
	}
}

func TestBatchProcessor_URLInputsAreRateLimited(t *testing.T) {
	analyzer := &mockAnalyzer{}
	limiter := NewLimiter(1000, 1)
	processor := NewBatchProcessor(analyzer.Analyze, 2, limiter)

	results := processor.ProcessInputs(context.Background(), []string{"https://news.example/a", "plain text"})
	for _, res := range results {
		if res.Error != nil {
			t.Fatalf("unexpected error: %v", res.Error)
		}
	}
	if limiter.Len() != 1 {
		t.Errorf("expected one host bucket, got %d", limiter.Len())
	}
}

func TestReadLinesFromFile(t *testing.T) {
	content := `shocking claim
# comment
https://news.example/article
   
official figures   `

	lines, err := ReadLinesFromFile(writeTemp(t, content))
	if err != nil {
		t.Fatalf("ReadLinesFromFile failed: %v", err)
	}

	expected := []string{"shocking claim", "https://news.example/article", "official figures"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d", len(expected), len(lines))
	}
	for i, line := range lines {
		if line != expected[i] {
			t.Errorf("expected %q at index %d, got %q", expected[i], i, line)
		}
	}
}

func TestReadLinesFromFile_Deduplication(t *testing.T) {
	lines, err := ReadLinesFromFile(writeTemp(t, "same text\nsame text\nother\n"))
	if err != nil {
		t.Fatalf("ReadLinesFromFile failed: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("expected 2 lines after deduplication, got %d", len(lines))
	}
}

func TestReadLinesFromFile_NonExistent(t *testing.T) {
	_, err := ReadLinesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "first article\nsecond article\n# comment\n\nthird article\n")

	processor := NewBatchProcessor((&mockAnalyzer{}).Analyze, 2, nil)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	_, err = processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://news.example/a": true,
		"http://news.example":    true,
		"ftp://news.example":     false,
		"breaking news":          false,
	}
	for in, want := range cases {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, expected %v", in, got, want)
		}
	}
}
