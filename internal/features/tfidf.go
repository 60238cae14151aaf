// Package features maps normalized documents to sparse TF-IDF vectors.
package features

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrUnfitted is returned when Transform is called before Fit
	ErrUnfitted = errors.New("unfitted component: vectorizer has not been fitted")

	// ErrEmptyCorpus is returned when Fit receives no documents
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrEmptyVocabulary is returned when pruning removes every term
	ErrEmptyVocabulary = errors.New("after pruning, no terms remain; lower min_df or raise max_df")
)

// Options controls vocabulary pruning
type Options struct {
	MaxDF       float64 // Drop terms present in more than MaxDF * N documents
	MinDF       int     // Drop terms present in fewer than MinDF documents
	MinTokenLen int     // Ignore tokens shorter than this
}

// DefaultOptions mirrors the training defaults (max_df 0.8, min_df 5)
func DefaultOptions() Options {
	return Options{MaxDF: 0.8, MinDF: 5, MinTokenLen: 2}
}

// Vectorizer learns a vocabulary and IDF weights, then maps documents to L2-normalized TF-IDF vectors.
// After Fit it is read-only and safe for concurrent Transform calls.
type Vectorizer struct {
	opts  Options
	vocab map[string]int
	terms []string
	idf   []float64
}

// NewVectorizer creates an unfitted vectorizer
func NewVectorizer(opts Options) *Vectorizer {
	if opts.MinTokenLen <= 0 {
		opts.MinTokenLen = 1
	}
	if opts.MinDF <= 0 {
		opts.MinDF = 1
	}
	if opts.MaxDF <= 0 || opts.MaxDF > 1 {
		opts.MaxDF = 1
	}
	return &Vectorizer{opts: opts}
}

// Fitted reports whether Fit has completed
func (v *Vectorizer) Fitted() bool {
	return v.vocab != nil
}

// Dim returns the vocabulary size
func (v *Vectorizer) Dim() int {
	return len(v.terms)
}

// Vocabulary returns the terms in index order
func (v *Vectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDF returns the inverse document frequency of a term, and whether it is in the vocabulary
func (v *Vectorizer) IDF(term string) (float64, bool) {
	idx, ok := v.vocab[term]
	if !ok {
		return 0, false
	}
	return v.idf[idx], true
}

// Fit builds the vocabulary and IDF weights from normalized documents.
// A refit replaces the previous vocabulary wholesale.
func (v *Vectorizer) Fit(docs []string) error {
	n := len(docs)
	if n == 0 {
		return ErrEmptyCorpus
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range v.tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDocs := v.opts.MaxDF * float64(n)
	if maxDocs < float64(v.opts.MinDF) {
		return fmt.Errorf("max_df corresponds to %.1f documents, fewer than min_df %d", maxDocs, v.opts.MinDF)
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if float64(count) > maxDocs || count < v.opts.MinDF {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return ErrEmptyVocabulary
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed: ln((1+N)/(1+df)) + 1
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	v.vocab = vocab
	v.terms = terms
	v.idf = idf
	return nil
}

// Transform maps normalized documents to TF-IDF vectors with the frozen vocabulary.
// Documents without known terms map to the zero vector.
func (v *Vectorizer) Transform(docs []string) ([]Vector, error) {
	if !v.Fitted() {
		return nil, ErrUnfitted
	}
	out := make([]Vector, len(docs))
	for i, doc := range docs {
		out[i] = v.transformOne(doc)
	}
	return out, nil
}

// FitTransform fits on docs and transforms them
func (v *Vectorizer) FitTransform(docs []string) ([]Vector, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

func (v *Vectorizer) transformOne(doc string) Vector {
	counts := make(map[int]float64)
	for _, tok := range v.tokenize(doc) {
		if idx, ok := v.vocab[tok]; ok {
			counts[idx]++
		}
	}

	vec := Vector{Dim: len(v.terms)}
	if len(counts) == 0 {
		return vec
	}

	vec.Indices = make([]int, 0, len(counts))
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	vec.Values = make([]float64, len(vec.Indices))
	var sumSq float64
	for k, idx := range vec.Indices {
		w := counts[idx] * v.idf[idx]
		vec.Values[k] = w
		sumSq += w * w
	}
	norm := math.Sqrt(sumSq)
	for k := range vec.Values {
		vec.Values[k] /= norm
	}
	return vec
}

func (v *Vectorizer) tokenize(doc string) []string {
	fields := strings.Fields(doc)
	if v.opts.MinTokenLen <= 1 {
		return fields
	}
	out := fields[:0:0]
	for _, f := range fields {
		if len(f) >= v.opts.MinTokenLen {
			out = append(out, f)
		}
	}
	return out
}

// snapshot is the serialized form. Terms are stored in index order so encoding is deterministic.
type snapshot struct {
	Version int
	Options Options
	Terms   []string
	IDF     []float64
}

const snapshotVersion = 1

// MarshalBinary implements encoding.BinaryMarshaler
func (v *Vectorizer) MarshalBinary() ([]byte, error) {
	if !v.Fitted() {
		return nil, ErrUnfitted
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Version: snapshotVersion,
		Options: v.opts,
		Terms:   v.terms,
		IDF:     v.idf,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vectorizer: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (v *Vectorizer) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("decode vectorizer: %w", err)
	}
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported vectorizer version %d", s.Version)
	}
	if len(s.Terms) != len(s.IDF) || len(s.Terms) == 0 {
		return fmt.Errorf("corrupt vectorizer: %d terms, %d idf weights", len(s.Terms), len(s.IDF))
	}

	vocab := make(map[string]int, len(s.Terms))
	for i, term := range s.Terms {
		vocab[term] = i
	}
	v.opts = s.Options
	v.vocab = vocab
	v.terms = s.Terms
	v.idf = s.IDF
	return nil
}
