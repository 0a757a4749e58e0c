package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/index"
	"github.com/gcbaptista/go-book-indexer/internal/indexing"
	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/internal/search"
	"github.com/gcbaptista/go-book-indexer/internal/source"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/services"
	"github.com/gcbaptista/go-book-indexer/store"
)

// snapshot is one published build. It is never modified after publication.
type snapshot struct {
	collection *store.Collection
	index      *index.InvertedIndex
	searcher   *search.Service
	generation uint64
	ticket     uint64
	builtAt    time.Time
}

// InstanceOptions configures an IndexInstance.
type InstanceOptions struct {
	CacheSize int
	Metrics   *metrics.Metrics
}

// IndexInstance owns the document collection and inverted index of one index.
// Readers always see a complete build; builds on the same instance run one at a time.
// Every build takes a ticket when it is requested, and a build never replaces one
// requested after it, so the last requested build wins whatever order they run in.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	settings  config.IndexSettings
	indexer   *indexing.Service
	cacheSize int
	metrics   *metrics.Metrics
	log       *slog.Logger

	buildMu sync.Mutex
	tickets atomic.Uint64
	current atomic.Pointer[snapshot]
	loads   singleflight.Group
}

// NewIndexInstance creates an unbuilt IndexInstance.
func NewIndexInstance(settings config.IndexSettings, opts InstanceOptions) (*IndexInstance, error) {
	settings.ApplyDefaults()
	indexer, err := indexing.NewService(settings)
	if err != nil {
		return nil, err
	}

	inst := &IndexInstance{
		settings:  settings,
		indexer:   indexer,
		cacheSize: opts.CacheSize,
		metrics:   opts.Metrics,
		log:       logger.WithComponent("engine").With("index", settings.Name),
	}
	inst.current.Store(&snapshot{
		collection: store.NewCollection(nil),
		index:      index.NewInvertedIndex(),
		searcher:   search.NewService(settings.Name, nil, opts.CacheSize, opts.Metrics),
	})
	return inst, nil
}

// BuildIndex replaces the collection and index with ones built from docs.
func (i *IndexInstance) BuildIndex(docs []model.Document) services.IndexStats {
	stats, _ := i.build(store.NewCollection(docs), i.reserve())
	return stats
}

// reserve hands out the ticket of a build requested now.
func (i *IndexInstance) reserve() uint64 {
	return i.tickets.Add(1)
}

// build publishes a build of collection unless a build with a later ticket is
// already published. It reports whether it published.
func (i *IndexInstance) build(collection *store.Collection, ticket uint64) (services.IndexStats, bool) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	current := i.current.Load()
	if ticket < current.ticket {
		i.log.Debug("build superseded", "ticket", ticket, "published_ticket", current.ticket)
		return current.stats(i.settings.Name), false
	}

	start := time.Now()
	ii := i.indexer.Build(collection)
	next := &snapshot{
		collection: collection,
		index:      ii,
		searcher:   search.NewService(i.settings.Name, ii, i.cacheSize, i.metrics),
		generation: current.generation + 1,
		ticket:     ticket,
		builtAt:    time.Now(),
	}
	i.current.Store(next)

	elapsed := time.Since(start)
	i.metrics.ObserveBuild(i.settings.Name, nil, elapsed, ii.Len(), collection.Len())
	i.log.Info("index built",
		"documents", collection.Len(),
		"terms", ii.Len(),
		"generation", next.generation,
		"elapsed", elapsed)
	return next.stats(i.settings.Name), true
}

// Load fetches documents from src and builds from them. On error the current
// build stays published.
func (i *IndexInstance) Load(ctx context.Context, src source.Source) error {
	_, err := i.load(ctx, src, i.reserve())
	return err
}

// load fetches src and builds under ticket. Concurrent loads of sources with
// the same type and Name share one fetch, running under the first caller's ctx;
// each caller then builds with its own ticket.
func (i *IndexInstance) load(ctx context.Context, src source.Source, ticket uint64) (bool, error) {
	key := fmt.Sprintf("%T:%s", src, src.Name())
	v, err, shared := i.loads.Do(key, func() (interface{}, error) {
		start := time.Now()
		docs, err := src.Load(ctx)
		if err != nil {
			i.metrics.ObserveBuild(i.settings.Name, err, time.Since(start), 0, 0)
			i.log.Error("load failed", "source", src.Name(), "error", err)
			return nil, err
		}
		return store.NewCollection(docs), nil
	})
	if shared {
		i.log.Debug("load shared with concurrent caller", "source", src.Name())
	}
	if err != nil {
		return false, err
	}
	_, published := i.build(v.(*store.Collection), ticket)
	return published, nil
}

// GetIndex returns a copy of the whole term -> posting list mapping.
func (i *IndexInstance) GetIndex() map[string]index.PostingList {
	return i.current.Load().index.Map()
}

// GetDocumentIndex returns the terms of one document, each with its full
// posting list. Unknown IDs yield an empty map.
func (i *IndexInstance) GetDocumentIndex(docID int) map[string]index.PostingList {
	return i.current.Load().index.ForDocument(docID)
}

// SearchIndex looks up every distinct term of the queries.
func (i *IndexInstance) SearchIndex(queries ...tokenizer.Query) search.Result {
	return i.current.Load().searcher.Search(queries...)
}

// Document returns the document at position docID of the current build.
func (i *IndexInstance) Document(docID int) (model.Document, bool) {
	return i.current.Load().collection.Get(docID)
}

// Stats describes the current build.
func (i *IndexInstance) Stats() services.IndexStats {
	return i.current.Load().stats(i.settings.Name)
}

// Settings returns the configuration settings for this index.
func (i *IndexInstance) Settings() config.IndexSettings {
	s := i.settings
	s.Fields = append([]string(nil), i.settings.Fields...)
	return s
}

func (s *snapshot) stats(name string) services.IndexStats {
	stats := services.IndexStats{
		Name:       name,
		Built:      s.generation > 0,
		Documents:  s.collection.Len(),
		Terms:      s.index.Len(),
		Generation: s.generation,
	}
	if stats.Built {
		builtAt := s.builtAt
		stats.BuiltAt = &builtAt
	}
	return stats
}
