// Package dataset reads telemetry feed files and reads/writes JSON Lines
// training datasets.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
)

// maxLineBytes bounds a single dataset row; a 24-step window is ~5 KiB.
const maxLineBytes = 16 << 20

// LoadFeed reads a {"points": [...]} feed file. A feed without a points key
// yields no points.
func LoadFeed(path string) ([]domain.TelemetryPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return DecodeFeed(data)
}

// DecodeFeed parses feed JSON.
func DecodeFeed(data []byte) ([]domain.TelemetryPoint, error) {
	var feed domain.Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w: %w", domain.ErrMalformedInput, err)
	}
	if feed.Points == nil {
		return []domain.TelemetryPoint{}, nil
	}
	return feed.Points, nil
}

// WriteExamples writes one JSON object per line to path, creating parent
// directories and truncating any existing file.
func WriteExamples(path string, examples []domain.WindowExample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := EncodeExamples(bw, examples); err != nil {
		f.Close() //nolint:errcheck // encode error takes precedence
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close() //nolint:errcheck // flush error takes precedence
		return fmt.Errorf("flush dataset: %w", err)
	}
	return f.Close()
}

// EncodeExamples writes examples as JSON Lines.
func EncodeExamples(w io.Writer, examples []domain.WindowExample) error {
	enc := json.NewEncoder(w)
	for i := range examples {
		if err := enc.Encode(examples[i]); err != nil {
			return fmt.Errorf("encode example %d: %w", i, err)
		}
	}
	return nil
}

// ReadExamples loads a JSON Lines dataset. A missing file reads as an empty
// dataset so training on it records a "No data" model.
func ReadExamples(path string) ([]domain.WindowExample, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.WindowExample{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return DecodeExamples(f)
}

// row mirrors WindowExample with a slice target so short rows are detected
// rather than zero-filled.
type row struct {
	X         []domain.FeatureVector `json:"x"`
	Y         []float64              `json:"y"`
	Timestamp string                 `json:"timestamp"`
}

// DecodeExamples parses JSON Lines, skipping blank lines.
func DecodeExamples(r io.Reader) ([]domain.WindowExample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	examples := []domain.WindowExample{}
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		var rw row
		if err := json.Unmarshal(b, &rw); err != nil {
			return nil, fmt.Errorf("dataset line %d: %w: %w", line, domain.ErrMalformedInput, err)
		}
		if len(rw.Y) != len(domain.TargetVector{}) {
			return nil, fmt.Errorf("dataset line %d: %w: y has %d components, want 2",
				line, domain.ErrMalformedInput, len(rw.Y))
		}
		examples = append(examples, domain.WindowExample{
			X:         rw.X,
			Y:         domain.TargetVector{rw.Y[0], rw.Y[1]},
			Timestamp: rw.Timestamp,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	return examples, nil
}
