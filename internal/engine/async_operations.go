package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gcbaptista/go-book-indexer/internal/source"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/store"
)

// BuildIndexAsync rebuilds an index from docs in a background job and returns
// the job ID. docs are copied before the call returns.
// Jobs submitted later always win over earlier ones on the same index, and a
// job keeps building into the index it was submitted to even if that index is
// deleted meanwhile.
func (e *Engine) BuildIndexAsync(name string, docs []model.Document) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}
	collection := store.NewCollection(docs)
	ticket := instance.reserve()

	jobID := e.jobManager.CreateJob(model.JobTypeBuildIndex, name, map[string]string{
		"operation": "build_index",
		"documents": strconv.Itoa(collection.Len()),
	})

	err = e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job model.Job) error {
		e.executeBuildJob(jobID, instance, collection, ticket)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build index job: %w", err)
	}
	return jobID, nil
}

// executeBuildJob executes the build index job.
func (e *Engine) executeBuildJob(jobID string, instance *IndexInstance, collection *store.Collection, ticket uint64) {
	e.jobManager.UpdateJobProgress(jobID, 0, collection.Len(), "building index")
	stats, published := instance.build(collection, ticket)
	if !published {
		e.jobManager.UpdateJobProgress(jobID, collection.Len(), collection.Len(),
			"superseded by a later build")
		return
	}
	e.jobManager.UpdateJobProgress(jobID, stats.Documents, stats.Documents,
		fmt.Sprintf("indexed %d terms", stats.Terms))
}

// LoadIndexAsync fetches documents from src and rebuilds the index in a
// background job. It returns the job ID.
func (e *Engine) LoadIndexAsync(name string, src source.Source) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}
	ticket := instance.reserve()

	jobID := e.jobManager.CreateJob(model.JobTypeLoadIndex, name, map[string]string{
		"operation": "load_index",
		"source":    src.Name(),
	})

	err = e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job model.Job) error {
		return e.executeLoadJob(ctx, jobID, instance, src, ticket)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start load index job: %w", err)
	}
	return jobID, nil
}

// executeLoadJob executes the load index job.
func (e *Engine) executeLoadJob(ctx context.Context, jobID string, instance *IndexInstance, src source.Source, ticket uint64) error {
	e.jobManager.UpdateJobProgress(jobID, 0, 2, "loading documents from "+src.Name())
	published, err := instance.load(ctx, src, ticket)
	if err != nil {
		return err
	}
	if !published {
		e.jobManager.UpdateJobProgress(jobID, 2, 2, "superseded by a later build")
		return nil
	}
	stats := instance.Stats()
	e.jobManager.UpdateJobProgress(jobID, 2, 2,
		fmt.Sprintf("indexed %d documents, %d terms", stats.Documents, stats.Terms))
	return nil
}
