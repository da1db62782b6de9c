// Package snapshot saves and loads canonical schemas as YAML or JSON files so
// that a later run can diff against them without re-parsing the source DDL.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemabridge/internal/schema"
)

// Version is the snapshot file format version written by this package.
const Version = 1

// Format is a snapshot file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrNoSchema is returned when a snapshot file carries no schema.
var ErrNoSchema = errors.New("snapshot has no schema")

// Snapshot is a schema captured at a point in time.
type Snapshot struct {
	Version   int            `json:"version" yaml:"version"`
	ID        string         `json:"id" yaml:"id"`
	CreatedAt time.Time      `json:"createdAt" yaml:"createdAt"`
	Source    string         `json:"source,omitempty" yaml:"source,omitempty"`
	Schema    *schema.Schema `json:"schema" yaml:"schema"`
}

// New wraps s in a snapshot with a fresh identifier. source describes where
// the schema came from, e.g. a dialect name or a database.
func New(s *schema.Schema, source string, now time.Time) *Snapshot {
	return &Snapshot{
		Version:   Version,
		ID:        uuid.New().String(),
		CreatedAt: now.UTC(),
		Source:    source,
		Schema:    s,
	}
}

// FormatFor picks the encoding from a file extension. Anything that is not
// .json is treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// IsSnapshotPath reports whether path looks like a snapshot file rather than
// a DDL script.
func IsSnapshotPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Encode writes snap to w.
func Encode(w io.Writer, snap *Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown snapshot format %q", format)
	}
}

// Decode reads a snapshot from r, detecting JSON by its leading brace.
func Decode(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &snap)
	} else {
		err = yaml.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version > Version {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, Version)
	}
	if snap.Schema == nil {
		return nil, ErrNoSchema
	}
	if err := schema.Validate(snap.Schema, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes snap to path, choosing the encoding from the extension.
func Save(path string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, snap, FormatFor(path)); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads the snapshot at path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
