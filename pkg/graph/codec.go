package graph

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"
)

// Format identifies a snapshot document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatSnappyJSON
)

// Document is the on-disk representation of a graph snapshot.
type Document struct {
	Version uint64 `json:"version" yaml:"version"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges" yaml:"edges"`
}

// FormatFromPath picks an encoding from a file name extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".snappy", ".sz":
		return FormatSnappyJSON
	default:
		return FormatJSON
	}
}

// ReadSnapshot decodes a document and validates it into a snapshot.
func ReadSnapshot(r io.Reader, format Format) (*Snapshot, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	case FormatSnappyJSON:
		if err := json.NewDecoder(snappy.NewReader(r)).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode snappy snapshot: %w", err)
		}
	default:
		if err := json.NewDecoder(bufio.NewReader(r)).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	}
	return NewSnapshot(doc.Version, doc.Nodes, doc.Edges)
}

// WriteSnapshot encodes a snapshot as a document.
func WriteSnapshot(w io.Writer, s *Snapshot, format Format) error {
	doc := Document{Version: s.Version(), Nodes: s.Nodes(), Edges: s.Edges()}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("failed to encode yaml snapshot: %w", err)
		}
		return enc.Close()
	case FormatSnappyJSON:
		sw := snappy.NewBufferedWriter(w)
		if err := json.NewEncoder(sw).Encode(&doc); err != nil {
			sw.Close()
			return fmt.Errorf("failed to encode snappy snapshot: %w", err)
		}
		return sw.Close()
	default:
		return json.NewEncoder(w).Encode(&doc)
	}
}

// LoadSnapshotFile reads a snapshot from disk, choosing the format by extension.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return ReadSnapshot(f, FormatFromPath(path))
}

// SaveSnapshotFile writes a snapshot to disk via a temp file and rename.
func SaveSnapshotFile(path string, s *Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := WriteSnapshot(f, s, FormatFromPath(path)); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// FileProvider re-reads a snapshot document from disk on every call.
type FileProvider struct {
	Path string
}

// Snapshot implements the maintenance snapshot provider contract.
func (p FileProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadSnapshotFile(p.Path)
}
