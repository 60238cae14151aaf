package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ppiankov/newsprobe/internal/model"
)

// WriteCleaned writes the diagnostic cleaned dataset as text,cleaned_text,label rows
func WriteCleaned(w io.Writer, docs []model.Document, cleaned []string) error {
	if len(docs) != len(cleaned) {
		return fmt.Errorf("write cleaned: %d documents but %d cleaned texts", len(docs), len(cleaned))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"text", "cleaned_text", "label"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, doc := range docs {
		row := []string{doc.Text(), cleaned[i], strconv.Itoa(int(doc.Label))}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
