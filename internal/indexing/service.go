package indexing

import (
	"fmt"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/index"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/store"
)

// Service builds inverted indexes for a single index configuration.
type Service struct {
	fields []string
}

// NewService creates a new indexing Service.
// Settings without fields fall back to config.DefaultFields.
func NewService(settings config.IndexSettings) (*Service, error) {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid index settings: %v", problems)
	}
	return &Service{fields: settings.Fields}, nil
}

// Fields returns the field concatenation order.
func (s *Service) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Tokens returns the normalized terms of a single document.
func (s *Service) Tokens(doc model.Document) []string {
	return tokenizer.Normalize(doc.Text(s.fields))
}

// Build creates a fresh index over the collection.
// Document IDs are collection positions; every term maps each document at most once.
func (s *Service) Build(collection *store.Collection) *index.InvertedIndex {
	ii := index.NewInvertedIndex()
	collection.Each(func(docID int, doc model.Document) {
		for _, term := range s.Tokens(doc) {
			ii.Add(term, docID)
		}
	})
	return ii
}
