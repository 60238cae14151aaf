package model

// Proba is a probability distribution over {fake, real}, indexed by Label
type Proba [2]float64

// Label returns the most likely class. Ties resolve to fake.
func (p Proba) Label() Label {
	if p[LabelReal] > p[LabelFake] {
		return LabelReal
	}
	return LabelFake
}

// Confidence returns max(p) as a percentage, in (50, 100] except on an exact
// 50/50 tie, which reports 50 for the fake label
func (p Proba) Confidence() float64 {
	return p[p.Label()] * 100
}

// Prediction is a derived classification result; it is never stored
type Prediction struct {
	Label      Label   `json:"label"`
	LabelName  string  `json:"label_name"`
	Confidence float64 `json:"confidence"` // max(proba) * 100
	Proba      Proba   `json:"proba"`
}

// NewPrediction derives a prediction from a distribution
func NewPrediction(p Proba) Prediction {
	l := p.Label()
	return Prediction{
		Label:      l,
		LabelName:  l.String(),
		Confidence: p.Confidence(),
		Proba:      p,
	}
}

// Attribution is one word's signed contribution toward the explained class
type Attribution struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"` // > 0 supports the class, < 0 opposes it
}

// Explanation is a local attribution report for one text
type Explanation struct {
	Target          Label         `json:"target"`           // Class whose probability was explained
	Attributions    []Attribution `json:"attributions"`     // Ranked by |weight| descending
	Intercept       float64       `json:"intercept"`        // Surrogate model intercept
	Score           float64       `json:"score"`            // Weighted R^2 of the surrogate
	LocalPrediction float64       `json:"local_prediction"` // Surrogate output on the original text
	NumSamples      int           `json:"num_samples"`      // Perturbed variants evaluated (including the original)
	NumWords        int           `json:"num_words"`        // Distinct words in the text
}
