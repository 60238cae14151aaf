package explain

import (
	"context"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// indexedText splits text on whitespace and groups token positions by distinct word
type indexedText struct {
	tokens    []string
	words     []string // Distinct words in first-occurrence order
	positions [][]int  // Token positions per distinct word
}

func newIndexedText(text string) *indexedText {
	t := &indexedText{tokens: strings.Fields(text)}
	index := make(map[string]int)
	for pos, tok := range t.tokens {
		id, ok := index[tok]
		if !ok {
			id = len(t.words)
			index[tok] = id
			t.words = append(t.words, tok)
			t.positions = append(t.positions, nil)
		}
		t.positions[id] = append(t.positions[id], pos)
	}
	return t
}

func (t *indexedText) NumWords() int {
	return len(t.words)
}

func (t *indexedText) Word(id int) string {
	return t.words[id]
}

// Render rebuilds the text with the given words masked. Every occurrence of a masked word is
// replaced by mask, or removed when mask is empty.
func (t *indexedText) Render(masked []int, mask string) string {
	drop := make([]bool, len(t.tokens))
	for _, id := range masked {
		for _, pos := range t.positions[id] {
			drop[pos] = true
		}
	}

	var b strings.Builder
	for pos, tok := range t.tokens {
		if drop[pos] {
			if mask == "" {
				continue
			}
			tok = mask
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// sampleSet is the perturbation neighborhood of one text
type sampleSet struct {
	data  *mat.Dense // rows x words, 1 when the word is kept
	texts []string
	kept  []int // Kept-word count per row
}

// sample builds n rows. Row 0 is the original text; every other row masks k distinct words,
// k drawn uniformly from [1, d-1] (k = 1 when the text has a single word).
func sample(ctx context.Context, doc *indexedText, n int, mask string, rng *rand.Rand) (*sampleSet, error) {
	d := doc.NumWords()
	set := &sampleSet{
		data:  mat.NewDense(n, d, nil),
		texts: make([]string, n),
		kept:  make([]int, n),
	}

	for j := 0; j < d; j++ {
		set.data.Set(0, j, 1)
	}
	set.texts[0] = doc.Render(nil, mask)
	set.kept[0] = d

	for i := 1; i < n; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		k := 1
		if d > 1 {
			k = 1 + rng.IntN(d-1)
		}
		masked := rng.Perm(d)[:k]

		for j := 0; j < d; j++ {
			set.data.Set(i, j, 1)
		}
		for _, j := range masked {
			set.data.Set(i, j, 0)
		}
		set.texts[i] = doc.Render(masked, mask)
		set.kept[i] = d - k
	}
	return set, nil
}
