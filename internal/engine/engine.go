package engine

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/internal/errors"
	"github.com/gcbaptista/go-book-indexer/internal/jobs"
	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/services"
)

// Options configures an Engine.
type Options struct {
	MaxWorkers   int
	JobRetention time.Duration
	CacheSize    int
	Metrics      *metrics.Metrics
}

// Engine manages multiple named indexes and the background jobs that build them.
// It implements the services.AsyncIndexManager and services.JobManager interfaces.
type Engine struct {
	mu         sync.RWMutex
	indexes    map[string]*IndexInstance
	jobManager *jobs.Manager
	cacheSize  int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewEngine creates an engine with no indexes and starts its job manager.
func NewEngine(opts Options) *Engine {
	jm := jobs.NewManager(jobs.Options{
		MaxWorkers: opts.MaxWorkers,
		Retention:  opts.JobRetention,
		Metrics:    opts.Metrics,
	})
	jm.Start()

	return &Engine{
		indexes:    make(map[string]*IndexInstance),
		jobManager: jm,
		cacheSize:  opts.CacheSize,
		metrics:    opts.Metrics,
		log:        logger.WithComponent("engine"),
	}
}

// CreateIndex registers a new, unbuilt index.
func (e *Engine) CreateIndex(settings config.IndexSettings) error {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	instance, err := NewIndexInstance(settings, InstanceOptions{CacheSize: e.cacheSize, Metrics: e.metrics})
	if err != nil {
		return errors.NewValidationError("settings", err.Error())
	}

	e.indexes[settings.Name] = instance
	e.log.Info("index created", "index", settings.Name, "fields", settings.Fields)
	return nil
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	return e.instance(name)
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves the settings for a specific index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	instance, err := e.instance(name)
	if err != nil {
		return config.IndexSettings{}, err
	}
	return instance.Settings(), nil
}

// DeleteIndex removes an index. Jobs already running against it finish on
// the detached instance.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; !exists {
		return errors.NewIndexNotFoundError(name)
	}
	delete(e.indexes, name)
	e.metrics.ForgetIndex(name)
	e.log.Info("index deleted", "index", name)
	return nil
}

// ListIndexes returns the index names in lexical order.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJob retrieves a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns the jobs of an index, optionally filtered by status.
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// Metrics returns the collectors the engine reports to, possibly nil.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Shutdown stops the job manager, cancelling pending and running jobs.
func (e *Engine) Shutdown() {
	e.jobManager.Stop()
}
