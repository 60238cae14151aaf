package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/worker"
)

func verdict() *model.Verdict {
	return &model.Verdict{
		Subject:    "Senate vote",
		SourceURL:  "https://example.com/senate",
		AnalyzedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Text:       "shocking report",
		Prediction: model.NewPrediction(model.Proba{0.8, 0.2}),
		Explanation: &model.Explanation{
			Target: model.LabelFake,
			Attributions: []model.Attribution{
				{Word: "shocking", Weight: 0.31},
				{Word: "a|b", Weight: -0.02},
			},
			Score:      0.9,
			NumSamples: 100,
			NumWords:   2,
		},
		Warnings: []string{"input looks like Spanish"},
		Model:    "abc123",
	}
}

func TestMarkdown(t *testing.T) {
	md := NewRenderer(true, false).Markdown(verdict())

	for _, want := range []string{
		"# newsprobe verdict",
		"**Subject:** Senate vote",
		"**Label:** Fake (80.0% confidence)",
		"## Warnings",
		"## Word attributions (toward Fake)",
		"| 1 | shocking | +0.3100 | toward Fake |",
		`| 2 | a\|b | -0.0200 | toward Real |`,
		"100 samples over 2 distinct words",
		"does not verify facts",
		"Model abc123.",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "## Narrative")
}

func TestMarkdown_NoFooterNoExplanation(t *testing.T) {
	v := verdict()
	v.Explanation = nil
	md := NewRenderer(false, false).Markdown(v)
	assert.NotContains(t, md, "Word attributions")
	assert.NotContains(t, md, "does not verify facts")
}

func TestMarkdown_WithNarrative(t *testing.T) {
	v := verdict()
	v.Narrative = &model.Narrative{Enabled: true, Provider: "openai", SummaryMD: `The word "shocking" mattered.`}
	md := NewRenderer(false, false).Markdown(v)
	assert.Contains(t, md, "## Narrative")
	assert.Contains(t, md, "GENERATED CONTENT")
}

func TestNarrativeMarkdown(t *testing.T) {
	assert.Empty(t, NarrativeMarkdown(nil))
	assert.Empty(t, NarrativeMarkdown(&model.Narrative{Enabled: false}))

	md := NarrativeMarkdown(&model.Narrative{Enabled: true, Provider: "ollama", Model: "llama3", StrictWords: true, Warnings: []string{"attribution leak"}})
	for _, want := range []string{"# LLM Narrative", "ollama", "llama3", "**Strict words:** true", "No narrative generated", "## Notes", "attribution leak"} {
		assert.Contains(t, md, want)
	}
}

func TestRenderFiles(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	r := NewRenderer(true, false)

	jsonPath := filepath.Join(dir, "out", "verdict.json")
	req.NoError(r.RenderJSON(verdict(), jsonPath))
	data, err := os.ReadFile(jsonPath)
	req.NoError(err)
	var decoded model.Verdict
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal("Fake", decoded.Prediction.LabelName)

	mdPath := filepath.Join(dir, "verdict.md")
	req.NoError(r.RenderMarkdown(verdict(), mdPath))
	data, err = os.ReadFile(mdPath)
	req.NoError(err)
	req.True(strings.HasPrefix(string(data), "# newsprobe verdict"))

	narrPath := filepath.Join(dir, "verdict.llm.md")
	req.NoError(r.RenderNarrativeMarkdown(&model.Narrative{}, narrPath))
	_, err = os.Stat(narrPath)
	req.True(os.IsNotExist(err))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false, false).RenderSummary(&buf, verdict())
	out := buf.String()
	assert.Contains(t, out, "Prediction:  Fake (80.0% confidence)")
	assert.Contains(t, out, "shocking")
	assert.Contains(t, out, "+0.3100")
	assert.Contains(t, out, "surrogate R² 0.900 over 100 samples")
}

func TestRenderEvaluation(t *testing.T) {
	var buf bytes.Buffer
	s := model.TrainingSummary{
		Documents: 10, TrainSize: 8, TestSize: 2, Vocabulary: 5, Iterations: 7, Converged: true,
		Evaluation: model.Evaluation{
			Accuracy:  0.5,
			PerClass:  [2]model.ClassMetrics{{Precision: 0.5, Recall: 1, F1: 0.67, Support: 1}, {Support: 1}},
			Confusion: [2][2]int{{1, 0}, {1, 0}},
			Total:     2,
		},
	}
	NewRenderer(false, false).RenderEvaluation(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Accuracy: 0.5000")
	assert.Contains(t, out, "PRECISION")
	assert.Contains(t, out, "weighted avg")
	assert.Contains(t, out, "Confusion")
	assert.NotContains(t, out, "not converged")
}

func TestRenderBatch(t *testing.T) {
	var buf bytes.Buffer
	results := []*worker.ArticleResult{
		{Input: "first article", Verdict: verdict()},
		{Input: "https://bad.example", Error: errors.New("fetch failed")},
	}
	NewRenderer(false, false).RenderBatch(&buf, results)
	out := buf.String()
	assert.Contains(t, out, "first article")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "fetch failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
}
