package search

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gcbaptista/go-book-indexer/index"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
)

// Service answers term lookups against a single built index.
// A Service is bound to one build; rebuilding an index creates a new Service
// and with it a fresh result cache.
type Service struct {
	name          string
	invertedIndex *index.InvertedIndex
	cache         *lru.Cache[string, Result]
	metrics       *metrics.Metrics
}

// NewService creates a search Service over invIndex. A cacheSize of zero or
// less disables result caching. metrics may be nil.
func NewService(name string, invIndex *index.InvertedIndex, cacheSize int, m *metrics.Metrics) *Service {
	if invIndex == nil {
		invIndex = index.NewInvertedIndex()
	}
	s := &Service{name: name, invertedIndex: invIndex, metrics: m}
	if cacheSize > 0 {
		// lru.New only fails for non-positive sizes
		s.cache, _ = lru.New[string, Result](cacheSize)
	}
	return s
}

// Search normalizes the queries and looks up every distinct term.
// Terms absent from the index map to NotFound; stop words never appear.
func (s *Service) Search(queries ...tokenizer.Query) Result {
	terms := tokenizer.Unique(tokenizer.NormalizeAll(queries...))
	if len(terms) == 0 {
		return emptyResult()
	}

	key := cacheKey(terms)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.ObserveCache(s.name, true)
			s.observe(cached)
			return cached.clone()
		}
		s.metrics.ObserveCache(s.name, false)
	}

	result := s.lookup(terms)
	s.observe(result)
	if s.cache != nil {
		s.cache.Add(key, result)
	}
	return result.clone()
}

// cacheKey encodes terms length-prefixed, so no two term lists share a key
// whatever bytes the terms contain.
func cacheKey(terms []string) string {
	var b strings.Builder
	for _, term := range terms {
		b.WriteString(strconv.Itoa(len(term)))
		b.WriteByte(':')
		b.WriteString(term)
	}
	return b.String()
}

// Lookup returns the match for a single, already normalized term.
func (s *Service) Lookup(term string) Match {
	if list, ok := s.invertedIndex.Lookup(term); ok {
		return Found(list)
	}
	return NotFound()
}

func (s *Service) lookup(terms []string) Result {
	result := Result{
		Terms:   terms,
		Matches: make(map[string]Match, len(terms)),
	}
	for _, term := range terms {
		result.Matches[term] = s.Lookup(term)
	}
	return result
}

func (s *Service) observe(r Result) {
	found, notFound := r.Counts()
	s.metrics.ObserveSearch(s.name, found, notFound)
}

// CacheLen returns the number of cached results.
func (s *Service) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}
