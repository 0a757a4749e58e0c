package services

import (
	"context"
	"time"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/index"
	"github.com/gcbaptista/go-book-indexer/internal/search"
	"github.com/gcbaptista/go-book-indexer/internal/source"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
	"github.com/gcbaptista/go-book-indexer/model"
)

// IndexStats describes the currently published build of an index.
type IndexStats struct {
	Name       string     `json:"name"`
	Built      bool       `json:"built"`
	Documents  int        `json:"documents"`
	Terms      int        `json:"terms"`
	Generation uint64     `json:"generation"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
}

// Indexer defines operations that replace the contents of an index
type Indexer interface {
	BuildIndex(docs []model.Document) IndexStats
	Load(ctx context.Context, src source.Source) error
}

// Searcher defines operations for querying an index
type Searcher interface {
	SearchIndex(queries ...tokenizer.Query) search.Result
}

// IndexReader exposes the built index and its documents.
type IndexReader interface {
	GetIndex() map[string]index.PostingList
	GetDocumentIndex(docID int) map[string]index.PostingList
	Document(docID int) (model.Document, bool)
	Stats() IndexStats
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	CreateIndex(settings config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error)
	GetIndexSettings(name string) (config.IndexSettings, error)
	DeleteIndex(name string) error
	ListIndexes() []string
}

// AsyncIndexManager runs builds in background jobs and returns their IDs.
type AsyncIndexManager interface {
	IndexManager
	BuildIndexAsync(name string, docs []model.Document) (string, error)
	LoadIndexAsync(name string, src source.Source) (string, error)
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
}

type IndexAccessor interface {
	Indexer
	Searcher
	IndexReader
	Settings() config.IndexSettings
}
