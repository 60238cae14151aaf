// Package artifact persists fitted components as self-describing binary files.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Kind identifies which component an artifact holds
type Kind string

const (
	KindVectorizer Kind = "vectorizer"
	KindClassifier Kind = "classifier"
)

var (
	// ErrMissing is returned when the artifact file does not exist
	ErrMissing = errors.New("artifact missing")

	// ErrCorrupt is returned when the header or payload cannot be read
	ErrCorrupt = errors.New("artifact corrupt")
)

const magic = "NPRB"

// header layout: magic(4) | version(1) | kind length(1) | kind | payload
const formatVersion byte = 1

// Encode wraps a marshaled component in the artifact envelope
func Encode(kind Kind, m encoding.BinaryMarshaler) ([]byte, error) {
	payload, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	if len(kind) > 255 {
		return nil, fmt.Errorf("kind %q too long", kind)
	}

	var buf bytes.Buffer
	buf.Grow(len(magic) + 2 + len(kind) + len(payload))
	buf.WriteString(magic)
	buf.WriteByte(formatVersion)
	buf.WriteByte(byte(len(kind)))
	buf.WriteString(string(kind))
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode checks the envelope and unmarshals the payload into u
func Decode(data []byte, kind Kind, u encoding.BinaryUnmarshaler) error {
	if len(data) < len(magic)+2 || string(data[:len(magic)]) != magic {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	rest := data[len(magic):]
	if rest[0] != formatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, rest[0])
	}
	n := int(rest[1])
	rest = rest[2:]
	if len(rest) < n {
		return fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if got := Kind(rest[:n]); got != kind {
		return fmt.Errorf("%w: holds a %s, expected a %s", ErrCorrupt, got, kind)
	}
	if err := u.UnmarshalBinary(rest[n:]); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

// Save writes the artifact atomically (temp file + rename)
func Save(path string, kind Kind, m encoding.BinaryMarshaler) error {
	data, err := Encode(kind, m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// Load reads and decodes an artifact
func Load(path string, kind Kind, u encoding.BinaryUnmarshaler) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return fmt.Errorf("read artifact %s: %w", path, err)
	}
	if err := Decode(data, kind, u); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Fingerprint hashes the encoded forms of the given components
func Fingerprint(parts ...encoding.BinaryMarshaler) (string, error) {
	h := sha256.New()
	for _, p := range parts {
		data, err := p.MarshalBinary()
		if err != nil {
			return "", err
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
