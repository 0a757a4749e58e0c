// Package source provides the document sources an index can be loaded from.
//
// A Source fetches and parses a document collection; the index engine only ever
// sees the resulting []model.Document. Every failure is reported as an
// *errors.LoadError so callers can tell load problems from engine problems.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	internalErrors "github.com/gcbaptista/go-book-indexer/internal/errors"
	"github.com/gcbaptista/go-book-indexer/model"
)

// Source supplies a parsed document collection.
type Source interface {
	// Name identifies the source in logs and errors (a path or URL).
	// Two sources of the same type and Name must yield the same collection:
	// concurrent loads of one index share a single fetch between them.
	Name() string
	// Load fetches and parses the collection.
	Load(ctx context.Context) ([]model.Document, error)
}

// Decode parses a JSON array of objects. Anything else is a parse error.
func Decode(r io.Reader) ([]model.Document, error) {
	dec := json.NewDecoder(r)

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("expected a JSON array of documents: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON array of documents, got null")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after document array")
	}

	docs := make([]model.Document, 0, len(raw))
	for i, item := range raw {
		var doc model.Document
		if err := json.Unmarshal(item, &doc); err != nil || doc == nil {
			return nil, fmt.Errorf("document at position %d is not a JSON object", i)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(data []byte) ([]model.Document, error) {
	return Decode(bytes.NewReader(data))
}

// FileSource reads a JSON document collection from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return s.Path }

// Load reads and parses the file.
func (s *FileSource) Load(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, internalErrors.NewLoadError(s.Path, err)
	}
	file, err := os.Open(s.Path) // #nosec G304 -- path is controlled by the operator
	if err != nil {
		return nil, internalErrors.NewLoadError(s.Path, err)
	}
	defer file.Close()

	docs, err := Decode(file)
	if err != nil {
		return nil, internalErrors.NewLoadError(s.Path, err)
	}
	return docs, nil
}

// StaticSource serves an already materialized collection.
type StaticSource struct {
	Label     string
	Documents []model.Document
}

// NewStaticSource wraps docs in a Source. label must be unique to docs, see
// Source.Name.
func NewStaticSource(label string, docs []model.Document) *StaticSource {
	return &StaticSource{Label: label, Documents: docs}
}

func (s *StaticSource) Name() string { return s.Label }

// Load returns the wrapped documents.
func (s *StaticSource) Load(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, internalErrors.NewLoadError(s.Label, err)
	}
	return s.Documents, nil
}

// MultiSource loads several sources concurrently and concatenates their
// documents in source order, so document IDs stay deterministic.
type MultiSource struct {
	Sources []Source
}

// NewMultiSource combines sources. A single source is returned unchanged.
func NewMultiSource(sources ...Source) Source {
	if len(sources) == 1 {
		return sources[0]
	}
	return &MultiSource{Sources: sources}
}

func (s *MultiSource) Name() string {
	names := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		names[i] = src.Name()
	}
	return strings.Join(names, ",")
}

// Load fetches every source; the first failure cancels the others.
func (s *MultiSource) Load(ctx context.Context) ([]model.Document, error) {
	parts := make([][]model.Document, len(s.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.Sources {
		g.Go(func() error {
			docs, err := src.Load(gctx)
			if err != nil {
				return err
			}
			parts[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	docs := make([]model.Document, 0, total)
	for _, p := range parts {
		docs = append(docs, p...)
	}
	return docs, nil
}

// FromLocation returns an HTTPSource for http(s) URLs and a FileSource otherwise.
func FromLocation(location string, opts HTTPOptions) Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(location, opts)
	}
	return NewFileSource(location)
}

// FromLocations builds one Source reading all locations in order.
func FromLocations(locations []string, opts HTTPOptions) (Source, error) {
	if len(locations) == 0 {
		return nil, internalErrors.NewValidationError("sources", "at least one source location is required")
	}
	sources := make([]Source, len(locations))
	for i, loc := range locations {
		if strings.TrimSpace(loc) == "" {
			return nil, internalErrors.NewValidationError("sources", fmt.Sprintf("location %d is empty", i))
		}
		sources[i] = FromLocation(loc, opts)
	}
	return NewMultiSource(sources...), nil
}
