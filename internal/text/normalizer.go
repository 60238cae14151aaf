// Package text turns raw article text into normalized tokens.
package text

import (
	"strings"
)

// Normalizer is the deterministic text-to-token pipeline shared by training and inference.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	stopwords  map[string]struct{}
	lemmatizer *Lemmatizer
}

// NewNormalizer creates a normalizer with the English stopword set
func NewNormalizer() *Normalizer {
	return &Normalizer{
		stopwords:  StopwordSet(),
		lemmatizer: NewLemmatizer(),
	}
}

// Normalize cleans raw text and returns surviving tokens joined by single spaces.
// Returns "" when every token is dropped.
func (n *Normalizer) Normalize(raw string) string {
	return strings.Join(n.Tokens(raw), " ")
}

// NormalizeAll normalizes each document
func (n *Normalizer) NormalizeAll(raws []string) []string {
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = n.Normalize(raw)
	}
	return out
}

// Tokens returns the normalized tokens of raw text
func (n *Normalizer) Tokens(raw string) []string {
	fields := strings.Fields(asciiLetters(raw))

	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if n.IsStopword(tok) {
			continue
		}
		lemma := n.lemmatizer.Lemma(tok)
		// Dropping lemmas that are stopwords keeps Normalize idempotent
		if n.IsStopword(lemma) {
			continue
		}
		tokens = append(tokens, lemma)
	}
	return tokens
}

// IsStopword reports whether a lowercase token is in the stopword set
func (n *Normalizer) IsStopword(tok string) bool {
	_, ok := n.stopwords[tok]
	return ok
}

// asciiLetters lowercases [A-Za-z] and replaces every other character with a space
func asciiLetters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
