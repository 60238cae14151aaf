// Package feedback records user corrections as labeled rows for later retraining.
package feedback

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ppiankov/newsprobe/internal/model"
)

// ErrInvalidLabel is returned for labels other than 0 and 1
var ErrInvalidLabel = errors.New("label must be 0 (fake) or 1 (real)")

var header = []string{"text", "label"}

// Entry is one feedback row
type Entry struct {
	Text  string      `json:"text"`
	Label model.Label `json:"label"`
}

// Correct returns the label a user confirms: the prediction itself when it was right,
// otherwise the other class
func Correct(predicted model.Label, wasCorrect bool) model.Label {
	if wasCorrect {
		return predicted
	}
	return predicted.Flip()
}

// CSVSink appends entries to a text,label CSV file
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a sink; the file is created on first write
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the backing file
func (s *CSVSink) Path() string {
	return s.path
}

// Append writes one row, adding the header when the file is new or empty
func (s *CSVSink) Append(e Entry) error {
	if !e.Label.Valid() {
		return ErrInvalidLabel
	}
	if strings.TrimSpace(e.Text) == "" {
		return fmt.Errorf("feedback text is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create feedback dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open feedback file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat feedback file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write feedback header: %w", err)
		}
	}
	if err := w.Write([]string{e.Text, strconv.Itoa(int(e.Label))}); err != nil {
		return fmt.Errorf("write feedback row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush feedback: %w", err)
	}
	return f.Sync()
}

// ReadAll loads every entry; a missing file yields no entries
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open feedback file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads text,label rows after the header
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read feedback header: %w", err)
	}

	var entries []Entry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read feedback row %d: %w", line, err)
		}
		label, err := model.ParseLabel(record[1])
		if err != nil {
			return nil, fmt.Errorf("feedback row %d: %w", line, err)
		}
		entries = append(entries, Entry{Text: record[0], Label: label})
	}
}

// Split separates entries into fake and real documents for retraining
func Split(entries []Entry) (fakeDocs, realDocs []model.Document) {
	for _, e := range entries {
		doc := model.Document{Body: e.Text, Label: e.Label}
		if e.Label == model.LabelFake {
			fakeDocs = append(fakeDocs, doc)
		} else {
			realDocs = append(realDocs, doc)
		}
	}
	return fakeDocs, realDocs
}
