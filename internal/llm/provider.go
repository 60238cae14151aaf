// Package llm writes an optional plain-language reading of a verdict.
// A narrative never changes the label, the confidence or the attributions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/newsprobe/internal/model"
)

// ErrAttributionLeak is returned in strict mode when the narrative quotes a word
// that is not one of the explanation's attribution words
var ErrAttributionLeak = errors.New("attribution leak")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate explains the verdict in prose, quoting only attribution words in strict mode
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)
}

// NarrateRequest contains the verdict to describe
type NarrateRequest struct {
	Verdict   model.Verdict
	Prompt    string // Optional custom prompt; empty uses BuildPrompt
	Model     string
	MaxTokens int
}

// NarrateResponse contains the provider output
type NarrateResponse struct {
	Summary     string
	QuotedWords []string // Words the narrative put in double quotes
	Model       string
	TokensUsed  int
}

// Config holds LLM provider configuration
type Config struct {
	Provider    string // "openai", "ollama" or "" (disabled)
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     int // seconds
	MaxTokens   int
	StrictWords bool

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the disabled configuration with strict words on
func DefaultConfig() Config {
	return Config{
		Timeout:     30,
		MaxTokens:   600,
		StrictWords: true,
	}
}

const systemPrompt = "You explain the output of a statistical fake-news classifier to a general reader. " +
	"You never judge whether the article is actually true."

// maxExcerpt bounds the article text included in the prompt
const maxExcerpt = 1500

// BuildPrompt renders the default prompt for a verdict
func BuildPrompt(v model.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A TF-IDF logistic regression model labeled this article %s with %.1f%% confidence.\n\n",
		v.Prediction.LabelName, v.Prediction.Confidence)

	b.WriteString("RULES:\n")
	b.WriteString("1. Describe what the model reacted to, not whether the article is true.\n")
	b.WriteString("2. When you mention a word, put it in double quotes, and ONLY quote words from the list below.\n")
	b.WriteString("3. Positive weights pushed toward the label, negative weights pushed away from it.\n")
	b.WriteString("4. Write 3-4 sentences in Markdown.\n\n")

	if v.Explanation != nil && len(v.Explanation.Attributions) > 0 {
		fmt.Fprintf(&b, "Word weights toward %s:\n", v.Explanation.Target)
		for _, a := range v.Explanation.Attributions {
			fmt.Fprintf(&b, "- %q: %+.4f\n", a.Word, a.Weight)
		}
	} else {
		b.WriteString("No word weights are available; do not quote any words.\n")
	}

	excerpt := v.Text
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "..."
	}
	fmt.Fprintf(&b, "\nArticle excerpt:\n%s\n", excerpt)
	return b.String()
}

var quotedPattern = regexp.MustCompile(`["\x{201C}]([^"\x{201D}\n]{1,60})["\x{201D}]`)

// quotedWords returns the words of every double-quoted span, lowercased, deduplicated in order
func quotedWords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		for _, w := range strings.Fields(m[1]) {
			w = strings.ToLower(strings.Trim(w, ".,;:!?'()"))
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// checkQuoted fails when a quoted word is not an attribution word
func checkQuoted(quoted []string, exp *model.Explanation) error {
	allowed := make(map[string]bool)
	if exp != nil {
		for _, a := range exp.Attributions {
			allowed[strings.ToLower(a.Word)] = true
		}
	}
	for _, w := range quoted {
		if !allowed[w] {
			return fmt.Errorf("%w: narrative quoted %q which is not an attribution word", ErrAttributionLeak, w)
		}
	}
	return nil
}

// Narrate asks the provider for a narrative. Failures land in Narrative.Warnings so
// the verdict itself is always returned intact.
func Narrate(ctx context.Context, p Provider, cfg Config, v *model.Verdict) *model.Narrative {
	n := &model.Narrative{Enabled: p != nil, Model: cfg.Model, StrictWords: cfg.StrictWords}
	if p == nil {
		return n
	}
	n.Provider = p.Name()

	resp, err := p.Narrate(ctx, NarrateRequest{Verdict: *v, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
	if err != nil {
		n.Warnings = append(n.Warnings, err.Error())
		return n
	}
	n.Model = resp.Model
	n.SummaryMD = resp.Summary
	return n
}
