// Package corpus provides labeled document sources for training.
package corpus

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ppiankov/newsprobe/internal/model"
)

// Source is an iterator over labeled documents. Next returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (model.Document, error)
}

// Closer is implemented by sources that hold an open file
type Closer interface {
	Close() error
}

// Collect drains a source into memory
func Collect(ctx context.Context, src Source) ([]model.Document, error) {
	var docs []model.Document
	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
}

// MultiSource drains its sources in order
type MultiSource struct {
	sources []Source
	pending []Source
}

// Concat chains sources; nil sources are skipped
func Concat(sources ...Source) *MultiSource {
	m := &MultiSource{}
	for _, s := range sources {
		if s != nil {
			m.sources = append(m.sources, s)
		}
	}
	m.pending = m.sources
	return m
}

// Next implements Source
func (m *MultiSource) Next(ctx context.Context) (model.Document, error) {
	for len(m.pending) > 0 {
		doc, err := m.pending[0].Next(ctx)
		if errors.Is(err, io.EOF) {
			m.pending = m.pending[1:]
			continue
		}
		return doc, err
	}
	return model.Document{}, io.EOF
}

// Close closes every source that holds a file
func (m *MultiSource) Close() error {
	var errs []error
	for _, s := range m.sources {
		errs = append(errs, CloseSource(s))
	}
	return errors.Join(errs...)
}

// SliceSource serves documents from memory, overriding their label
type SliceSource struct {
	docs  []model.Document
	label model.Label
	pos   int
}

// NewSliceSource labels every document with label
func NewSliceSource(label model.Label, docs ...model.Document) *SliceSource {
	return &SliceSource{docs: docs, label: label}
}

// FromTexts builds a SliceSource of body-only documents
func FromTexts(label model.Label, texts ...string) *SliceSource {
	docs := make([]model.Document, len(texts))
	for i, t := range texts {
		docs[i] = model.Document{Body: t}
	}
	return NewSliceSource(label, docs...)
}

// Next implements Source
func (s *SliceSource) Next(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	if s.pos >= len(s.docs) {
		return model.Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	doc.Label = s.label
	s.pos++
	return doc, nil
}

// CSVSource reads rows with "title" and "text" columns; other columns are ignored
type CSVSource struct {
	reader   *csv.Reader
	closer   io.Closer
	label    model.Label
	titleCol int
	textCol  int
	row      int
}

// NewCSVSource reads the header row and locates the title/text columns (case-insensitive).
// A missing title column is allowed; a missing text column is an error.
func NewCSVSource(r io.Reader, label model.Label) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	s := &CSVSource{reader: reader, label: label, titleCol: -1, textCol: -1, row: 1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			s.titleCol = i
		case "text", "body":
			if s.textCol < 0 {
				s.textCol = i
			}
		}
	}
	if s.textCol < 0 {
		return nil, fmt.Errorf("csv header %v has no text column", header)
	}
	return s, nil
}

// Next implements Source
func (s *CSVSource) Next(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Document{}, io.EOF
		}
		return model.Document{}, fmt.Errorf("read csv row %d: %w", s.row+1, err)
	}
	s.row++

	doc := model.Document{Label: s.label}
	if s.titleCol >= 0 && s.titleCol < len(record) {
		doc.Title = record[s.titleCol]
	}
	if s.textCol < len(record) {
		doc.Body = record[s.textCol]
	}
	return doc, nil
}

// Close closes the underlying file when the source owns one
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// JSONLSource reads one {"title": ..., "text": ...} object per line
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	label   model.Label
	line    int
}

// NewJSONLSource wraps a JSON lines reader
func NewJSONLSource(r io.Reader, label model.Label) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONLSource{scanner: scanner, label: label}
}

// Next implements Source
func (s *JSONLSource) Next(ctx context.Context) (model.Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Document{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return model.Document{}, fmt.Errorf("scan jsonl line %d: %w", s.line+1, err)
			}
			return model.Document{}, io.EOF
		}
		s.line++

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return model.Document{}, fmt.Errorf("decode jsonl line %d: %w", s.line, err)
		}
		doc.Label = s.label
		return doc, nil
	}
}

// Close closes the underlying file when the source owns one
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens a dataset file, choosing CSV or JSON lines by sniffing its content.
// Every document from the file gets label.
func Open(path string, label model.Label) (Source, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	if isJSON(mtype) || strings.HasSuffix(strings.ToLower(path), ".jsonl") {
		s := NewJSONLSource(f, label)
		s.closer = f
		return s, nil
	}

	s, err := NewCSVSource(f, label)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

func isJSON(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("application/json") || m.Is("application/x-ndjson") {
			return true
		}
	}
	return false
}

// CloseSource closes src if it implements Closer
func CloseSource(src Source) error {
	if c, ok := src.(Closer); ok {
		return c.Close()
	}
	return nil
}
