// Package registry persists trained-model records as a single JSON document.
//
// The registry is an append-only log: {"models": [ModelRecord, ...]}. Every
// append reads the document, pushes one record and rewrites the whole file.
// Appends within one process are serialized; appends from separate processes
// are not, and the last writer wins.
//
// Records written by other tools keep their content on rewrite, including
// fields ModelRecord does not know about and unknown top-level keys. A
// trained_at without a zone offset is read as UTC; one that matches no known
// layout reads as the zero time. Only a document that is not valid JSON is
// reported as corrupt.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
)

// Document is the on-disk registry shape.
type Document struct {
	Models []domain.ModelRecord `json:"models"`

	// raw holds the undecoded entries of Models and extra the other top-level
	// keys, so a rewrite does not drop what this package cannot model.
	raw   []json.RawMessage
	extra map[string]json.RawMessage
}

// trainedAtLayouts are tried in order for trained_at. Layouts without a zone
// are interpreted as UTC.
var trainedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTrainedAt(s string) (time.Time, bool) {
	for _, layout := range trainedAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// FileRegistry stores the registry document at a fixed path.
type FileRegistry struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileRegistry returns a registry backed by path. The file is created on
// the first Append.
func NewFileRegistry(path string, logger *slog.Logger) *FileRegistry {
	return &FileRegistry{path: path, logger: logger}
}

// Path returns the registry file location.
func (r *FileRegistry) Path() string { return r.path }

// Read returns the registry document. A missing file reads as an empty
// registry; a file that does not parse returns domain.ErrRegistryCorrupt.
func (r *FileRegistry) Read() (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Append adds record to the end of the registry and rewrites the document.
func (r *FileRegistry) Append(record domain.ModelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	entry, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode model record: %w", err)
	}
	doc.Models = append(doc.Models, record)
	doc.raw = append(doc.raw, entry)

	if err := r.write(doc); err != nil {
		return err
	}
	r.logger.Info("model registered",
		"version", record.Version,
		"samples", record.Metrics.Samples,
		"models", len(doc.Models),
		"path", r.path,
	)
	return nil
}

// CheckReadiness reports whether the registry can be read.
func (r *FileRegistry) CheckReadiness(_ context.Context) error {
	_, err := r.Read()
	return err
}

func (r *FileRegistry) read() (Document, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{Models: []domain.ModelRecord{}, raw: []json.RawMessage{}}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read registry %s: %w", r.path, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %w", domain.ErrRegistryCorrupt, r.path, err)
	}

	doc := Document{Models: []domain.ModelRecord{}, raw: []json.RawMessage{}, extra: top}
	if models, ok := top["models"]; ok {
		delete(top, "models")
		if err := json.Unmarshal(models, &doc.raw); err != nil {
			return Document{}, fmt.Errorf("%w: %s: models: %w", domain.ErrRegistryCorrupt, r.path, err)
		}
		if doc.raw == nil {
			doc.raw = []json.RawMessage{}
		}
	}

	for i, entry := range doc.raw {
		rec, err := r.decodeRecord(entry)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %s: model %d: %w", domain.ErrRegistryCorrupt, r.path, i, err)
		}
		doc.Models = append(doc.Models, rec)
	}
	return doc, nil
}

// decodeRecord reads one registry entry, tolerating trained_at values that
// time.Time would reject.
func (r *FileRegistry) decodeRecord(entry json.RawMessage) (domain.ModelRecord, error) {
	type plain domain.ModelRecord
	var rec struct {
		plain
		TrainedAt json.RawMessage `json:"trained_at"`
	}
	if err := json.Unmarshal(entry, &rec); err != nil {
		return domain.ModelRecord{}, err
	}
	out := domain.ModelRecord(rec.plain)

	var stamp string
	if len(rec.TrainedAt) == 0 || json.Unmarshal(rec.TrainedAt, &stamp) != nil {
		return out, nil
	}
	if ts, ok := parseTrainedAt(stamp); ok {
		out.TrainedAt = ts
	} else if stamp != "" {
		r.logger.Debug("unrecognized trained_at in registry", "version", out.Version, "trained_at", stamp)
	}
	return out, nil
}

// write replaces the registry via a temp file in the same directory and a
// rename, so readers see either the previous or the new document.
func (r *FileRegistry) write(doc Document) error {
	top := make(map[string]any, len(doc.extra)+1)
	for k, v := range doc.extra {
		top[k] = v
	}
	top["models"] = doc.raw
	data, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create registry temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}
