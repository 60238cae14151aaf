package model

import (
	"fmt"
	"strings"
)

// Label is the binary class of an article
type Label int

const (
	LabelFake Label = 0 // Fabricated or misleading article
	LabelReal Label = 1 // Genuine reporting
)

// Labels lists every class in index order
var Labels = [2]Label{LabelFake, LabelReal}

// String returns the display name used in verdicts ("Fake" or "Real")
func (l Label) String() string {
	switch l {
	case LabelFake:
		return "Fake"
	case LabelReal:
		return "Real"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether the label is one of the two known classes
func (l Label) Valid() bool {
	return l == LabelFake || l == LabelReal
}

// Flip returns the other class. There are exactly two classes.
func (l Label) Flip() Label {
	return 1 - l
}

// ParseLabel accepts "fake"/"real" (any case) or "0"/"1"
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "fake":
		return LabelFake, nil
	case "1", "real":
		return LabelReal, nil
	default:
		return 0, fmt.Errorf("unknown label %q (want fake, real, 0 or 1)", s)
	}
}

// Document is a labeled article
type Document struct {
	Title string `json:"title,omitempty"` // Headline
	Body  string `json:"text"`            // Article body
	Label Label  `json:"label"`           // Assigned by the originating source
}

// Text returns the title and body joined into one field
func (d Document) Text() string {
	if d.Title == "" {
		return d.Body
	}
	return d.Title + " " + d.Body
}
