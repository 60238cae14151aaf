package text

import "strings"

// irregularNouns maps irregular plurals to their base form.
// Every value is a fixed point of lemmaStep.
var irregularNouns = map[string]string{
	"children":  "child",
	"men":       "man",
	"women":     "woman",
	"feet":      "foot",
	"teeth":     "tooth",
	"geese":     "goose",
	"mice":      "mouse",
	"lice":      "louse",
	"oxen":      "ox",
	"data":      "datum",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"media":     "medium",
	"analyses":  "analysis",
	"crises":    "crisis",
	"theses":    "thesis",
	"leaves":    "leaf",
	"lives":     "life",
	"wives":     "wife",
	"knives":    "knife",
	"wolves":    "wolf",
	"halves":    "half",
	"shelves":   "shelf",
	"thieves":   "thief",
	"selves":    "self",
	"movies":    "movie",
	"cookies":   "cookie",
	"zombies":   "zombie",
	"calories":  "calorie",
	"headaches": "headache",
}

// invariantWords end in "s" but are already base forms
var invariantWords = map[string]struct{}{
	"news": {}, "series": {}, "species": {}, "politics": {}, "physics": {},
	"economics": {}, "mathematics": {}, "ethics": {}, "always": {}, "perhaps": {},
	"whereas": {}, "chaos": {}, "cosmos": {}, "ethos": {}, "kudos": {},
	"lens": {}, "bias": {}, "alias": {}, "atlas": {}, "canvas": {},
	"texas": {}, "kansas": {}, "arkansas": {}, "christmas": {}, "vegas": {},
	"thomas": {}, "douglas": {}, "nicholas": {}, "paris": {}, "mars": {},
	"iris": {}, "tennis": {}, "sometimes": {}, "besides": {}, "towards": {},
	"afterwards": {}, "whereabouts": {}, "headquarters": {}, "means": {}, "isis": {},
}

// Lemmatizer reduces words to a dictionary base form.
// Lemma(Lemma(w)) == Lemma(w) for every w.
type Lemmatizer struct {
	irregular map[string]string
	invariant map[string]struct{}
}

// NewLemmatizer creates the English noun lemmatizer
func NewLemmatizer() *Lemmatizer {
	return &Lemmatizer{
		irregular: irregularNouns,
		invariant: invariantWords,
	}
}

// Lemma returns the base form of a lowercase word
func (l *Lemmatizer) Lemma(word string) string {
	// A handful of steps always reaches a fixed point; the cap guards the loop
	for i := 0; i < 8; i++ {
		next := l.step(word)
		if next == word {
			break
		}
		word = next
	}
	return word
}

func (l *Lemmatizer) step(w string) string {
	if base, ok := l.irregular[w]; ok {
		return base
	}
	if _, ok := l.invariant[w]; ok {
		return w
	}
	if len(w) <= 3 || !strings.HasSuffix(w, "s") {
		return w
	}

	switch {
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "zzes"),
		strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	}
	return strings.TrimSuffix(w, "s")
}
