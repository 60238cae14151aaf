package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// corpus returns 10 documents where "common" is everywhere, "rare" appears once,
// "alpha" is in 6 documents and "beta" in 5.
func corpus() []string {
	docs := make([]string, 10)
	for i := range docs {
		doc := "common"
		if i < 6 {
			doc += " alpha"
		}
		if i >= 5 {
			doc += " beta beta"
		}
		if i == 0 {
			doc += " rare"
		}
		docs[i] = doc
	}
	return docs
}

func TestVectorizer_TransformBeforeFit(t *testing.T) {
	v := NewVectorizer(DefaultOptions())

	for _, in := range [][]string{{"anything"}, {""}, nil} {
		_, err := v.Transform(in)
		require.ErrorIs(t, err, ErrUnfitted)
	}
}

func TestVectorizer_FitPrunesVocabulary(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(DefaultOptions())
	req.NoError(v.Fit(corpus()))

	// "common" is in 100% > 80% of docs, "rare" is in 1 < 5 docs
	req.Equal([]string{"alpha", "beta"}, v.Vocabulary())
	req.Equal(2, v.Dim())

	idf, ok := v.IDF("alpha")
	req.True(ok)
	req.InDelta(math.Log(11.0/7.0)+1, idf, 1e-12)

	_, ok = v.IDF("common")
	req.False(ok)
}

func TestVectorizer_TransformShapeAndNorm(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(DefaultOptions())
	req.NoError(v.Fit(corpus()))

	vecs, err := v.Transform([]string{"alpha beta unknown", "unknown words only", ""})
	req.NoError(err)
	req.Len(vecs, 3)

	for _, vec := range vecs {
		req.Equal(v.Dim(), vec.Dim)
		for _, val := range vec.Values {
			req.GreaterOrEqual(val, 0.0)
		}
	}

	req.InDelta(1.0, vecs[0].Norm(), 1e-12)
	req.Equal([]int{0, 1}, vecs[0].Indices)

	// Zero recognized terms: all-zero vector, not an error
	req.Equal(0, vecs[1].NNZ())
	req.Equal(0, vecs[2].NNZ())
	req.Equal([]float64{0, 0}, vecs[2].Dense())

	// Transform never grows the vocabulary
	req.Equal(2, v.Dim())
}

func TestVectorizer_TransformDeterministic(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(DefaultOptions())
	req.NoError(v.Fit(corpus()))

	a, err := v.Transform([]string{"beta alpha beta"})
	req.NoError(err)
	b, err := v.Transform([]string{"beta alpha beta"})
	req.NoError(err)
	req.Equal(a, b)
}

func TestVectorizer_TermFrequencyWeighting(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(DefaultOptions())
	req.NoError(v.Fit(corpus()))

	vecs, err := v.Transform([]string{"alpha beta beta"})
	req.NoError(err)

	idfA, _ := v.IDF("alpha")
	idfB, _ := v.IDF("beta")
	wa, wb := idfA, 2*idfB
	norm := math.Sqrt(wa*wa + wb*wb)
	req.InDelta(wa/norm, vecs[0].At(0), 1e-12)
	req.InDelta(wb/norm, vecs[0].At(1), 1e-12)
}

func TestVectorizer_FitErrors(t *testing.T) {
	v := NewVectorizer(DefaultOptions())
	require.ErrorIs(t, v.Fit(nil), ErrEmptyCorpus)

	// 3 docs * 0.8 = 2.4 documents < min_df 5
	err := v.Fit([]string{"a b", "b c", "c d"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "min_df")

	strict := NewVectorizer(Options{MaxDF: 1, MinDF: 20, MinTokenLen: 2})
	docs := make([]string, 20)
	for i := range docs {
		docs[i] = "word"
	}
	docs[0] = "other"
	require.ErrorIs(t, strict.Fit(docs), ErrEmptyVocabulary)
}

func TestVectorizer_MinTokenLength(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(Options{MaxDF: 1, MinDF: 1, MinTokenLen: 2})
	req.NoError(v.Fit([]string{"u official", "u s official"}))
	req.Equal([]string{"official"}, v.Vocabulary())
}

func TestVectorizer_BinaryRoundTrip(t *testing.T) {
	req := require.New(t)
	v := NewVectorizer(DefaultOptions())
	req.NoError(v.Fit(corpus()))

	data, err := v.MarshalBinary()
	req.NoError(err)

	restored := NewVectorizer(Options{})
	req.NoError(restored.UnmarshalBinary(data))
	req.Equal(v.Vocabulary(), restored.Vocabulary())

	want, _ := v.Transform([]string{"alpha beta"})
	got, err := restored.Transform([]string{"alpha beta"})
	req.NoError(err)
	req.Equal(want, got)

	again, err := restored.MarshalBinary()
	req.NoError(err)
	req.Equal(data, again)
}

func TestVectorizer_MarshalUnfitted(t *testing.T) {
	_, err := NewVectorizer(DefaultOptions()).MarshalBinary()
	require.ErrorIs(t, err, ErrUnfitted)
}
