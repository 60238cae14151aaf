// Package render writes verdicts and training reports as JSON, Markdown and terminal tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/ppiankov/newsprobe/internal/model"
	"github.com/ppiankov/newsprobe/internal/worker"
)

const disclaimer = "This is a statistical estimate from word usage. It does not verify facts."

// Renderer renders verdicts and reports
type Renderer struct {
	includeFooter bool
	useColor      bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter, useColor bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, useColor: useColor}
}

// RenderJSON writes any value as indented JSON
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the verdict report
func (r *Renderer) RenderMarkdown(v *model.Verdict, path string) error {
	return writeFile(path, []byte(r.Markdown(v)))
}

// RenderNarrativeMarkdown writes the LLM narrative to its own file; disabled narratives write nothing
func (r *Renderer) RenderNarrativeMarkdown(n *model.Narrative, path string) error {
	md := NarrativeMarkdown(n)
	if md == "" {
		return nil
	}
	return writeFile(path, []byte(md))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders a verdict
func (r *Renderer) Markdown(v *model.Verdict) string {
	var b strings.Builder
	b.WriteString("# newsprobe verdict\n\n")
	if v.Subject != "" {
		fmt.Fprintf(&b, "**Subject:** %s  \n", v.Subject)
	}
	if v.SourceURL != "" {
		fmt.Fprintf(&b, "**Source:** %s  \n", v.SourceURL)
	}
	fmt.Fprintf(&b, "**Label:** %s (%.1f%% confidence)  \n", v.Prediction.LabelName, v.Prediction.Confidence)
	fmt.Fprintf(&b, "**Probabilities:** fake %.3f, real %.3f  \n",
		v.Prediction.Proba[model.LabelFake], v.Prediction.Proba[model.LabelReal])
	fmt.Fprintf(&b, "**Analyzed:** %s\n", v.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))

	if len(v.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range v.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if exp := v.Explanation; exp != nil {
		fmt.Fprintf(&b, "\n## Word attributions (toward %s)\n\n", exp.Target)
		if len(exp.Attributions) == 0 {
			b.WriteString("_No words to attribute._\n")
		} else {
			b.WriteString("| Rank | Word | Weight | Effect |\n|---:|---|---:|---|\n")
			for i, a := range exp.Attributions {
				fmt.Fprintf(&b, "| %d | %s | %+.4f | %s |\n", i+1, escapeCell(a.Word), a.Weight, effect(a.Weight, exp.Target))
			}
		}
		fmt.Fprintf(&b, "\nSurrogate fit: R² %.3f, intercept %.4f, local prediction %.4f, %d samples over %d distinct words.\n",
			exp.Score, exp.Intercept, exp.LocalPrediction, exp.NumSamples, exp.NumWords)
	}

	if n := v.Narrative; n != nil && n.Enabled && n.SummaryMD != "" {
		b.WriteString("\n## Narrative\n\n")
		b.WriteString("> GENERATED CONTENT. The label and attributions above were determined independently.\n\n")
		b.WriteString(n.SummaryMD)
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "_%s", disclaimer)
		if v.Model != "" {
			fmt.Fprintf(&b, " Model %s.", v.Model)
		}
		b.WriteString("_\n")
	}
	return b.String()
}

// NarrativeMarkdown renders a narrative as a standalone document
func NarrativeMarkdown(n *model.Narrative) string {
	if n == nil || !n.Enabled {
		return ""
	}
	var b strings.Builder
	b.WriteString("# LLM Narrative\n\n")
	b.WriteString("> GENERATED CONTENT. The label, confidence and attributions were determined independently.\n\n")
	fmt.Fprintf(&b, "- **Provider:** %s\n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", n.Model)
	}
	fmt.Fprintf(&b, "- **Strict words:** %t\n\n", n.StrictWords)
	if n.SummaryMD == "" {
		b.WriteString("_No narrative generated._\n")
	} else {
		b.WriteString(n.SummaryMD)
		b.WriteString("\n")
	}
	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func effect(weight float64, target model.Label) string {
	if weight >= 0 {
		return "toward " + target.String()
	}
	return "toward " + target.Flip().String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// labelText colors the label name
func (r *Renderer) labelText(l model.Label) string {
	if !r.useColor {
		return l.String()
	}
	if l == model.LabelFake {
		return color.New(color.FgRed, color.OpBold).Render(l.String())
	}
	return color.New(color.FgGreen, color.OpBold).Render(l.String())
}

func (r *Renderer) dim(s string) string {
	if !r.useColor {
		return s
	}
	return color.New(color.FgGray).Render(s)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// RenderSummary prints a verdict to the terminal
func (r *Renderer) RenderSummary(w io.Writer, v *model.Verdict) {
	fmt.Fprintln(w)
	if v.Subject != "" {
		fmt.Fprintf(w, "Subject:     %s\n", v.Subject)
	}
	if v.SourceURL != "" {
		fmt.Fprintf(w, "Source:      %s\n", v.SourceURL)
	}
	fmt.Fprintf(w, "Prediction:  %s (%.1f%% confidence)\n", r.labelText(v.Prediction.Label), v.Prediction.Confidence)
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "Warning:     %s\n", warn)
	}

	if exp := v.Explanation; exp != nil && len(exp.Attributions) > 0 {
		fmt.Fprintf(w, "\nTop words toward %s:\n", r.labelText(exp.Target))
		table := newTable(w, []string{"#", "WORD", "WEIGHT", "EFFECT"})
		for i, a := range exp.Attributions {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				a.Word,
				fmt.Sprintf("%+.4f", a.Weight),
				effect(a.Weight, exp.Target),
			})
		}
		table.Render()
		fmt.Fprintln(w, r.dim(fmt.Sprintf("surrogate R² %.3f over %d samples", exp.Score, exp.NumSamples)))
	}

	if n := v.Narrative; n != nil && n.Enabled && n.SummaryMD != "" {
		fmt.Fprintf(w, "\nNarrative (%s, generated):\n%s\n", n.Provider, n.SummaryMD)
	}
	fmt.Fprintln(w)
}

// RenderEvaluation prints the classification report of a training run
func (r *Renderer) RenderEvaluation(w io.Writer, s model.TrainingSummary) {
	e := s.Evaluation
	fmt.Fprintf(w, "\nTrained on %d documents (%d train, %d test), vocabulary %d, %d iterations",
		s.Documents, s.TrainSize, s.TestSize, s.Vocabulary, s.Iterations)
	if !s.Converged {
		fmt.Fprint(w, " (not converged)")
	}
	fmt.Fprintf(w, "\n\nAccuracy: %.4f\n\n", e.Accuracy)

	table := newTable(w, []string{"", "PRECISION", "RECALL", "F1", "SUPPORT"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	row := func(name string, m model.ClassMetrics) []string {
		return []string{name, fmt.Sprintf("%.2f", m.Precision), fmt.Sprintf("%.2f", m.Recall), fmt.Sprintf("%.2f", m.F1), fmt.Sprintf("%d", m.Support)}
	}
	for _, l := range model.Labels {
		table.Append(row(l.String(), e.PerClass[l]))
	}
	table.Append(row("macro avg", e.MacroAvg))
	table.Append(row("weighted avg", e.WeightedAvg))
	table.Render()

	fmt.Fprintln(w, "\nConfusion (rows actual, columns predicted):")
	cm := newTable(w, []string{"", "FAKE", "REAL"})
	for _, l := range model.Labels {
		cm.Append([]string{l.String(), fmt.Sprintf("%d", e.Confusion[l][model.LabelFake]), fmt.Sprintf("%d", e.Confusion[l][model.LabelReal])})
	}
	cm.Render()
	fmt.Fprintln(w)
}

// RenderBatch prints one row per batch input
func (r *Renderer) RenderBatch(w io.Writer, results []*worker.ArticleResult) {
	table := newTable(w, []string{"INPUT", "LABEL", "CONFIDENCE", "TOP WORD"})
	for _, res := range results {
		if res.Error != nil {
			table.Append([]string{truncate(res.Input, 60), "error", "", res.Error.Error()})
			continue
		}
		top := ""
		if exp := res.Verdict.Explanation; exp != nil && len(exp.Attributions) > 0 {
			top = exp.Attributions[0].Word
		}
		table.Append([]string{
			truncate(res.Input, 60),
			r.labelText(res.Verdict.Prediction.Label),
			fmt.Sprintf("%.1f%%", res.Verdict.Prediction.Confidence),
			top,
		})
	}
	table.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
