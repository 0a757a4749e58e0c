// Package testing provides utilities and helpers for testing the book indexer.
package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/internal/engine"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/services"
)

// SampleBooks returns the two-book corpus used across tests.
// "alice" only occurs in document 0; "dwarf" and "ring" only in document 1.
func SampleBooks() []model.Document {
	return []model.Document{
		{
			"title": "Alice in Wonderland",
			"text":  "Alice falls into a rabbit hole and enters a world full of imagination.",
		},
		{
			"title": "The Lord of the Rings: The Fellowship of the Ring.",
			"text":  "An unusual alliance of man, elf, dwarf, wizard and hobbit seek to destroy a powerful ring.",
		},
	}
}

// SampleBooksJSON is SampleBooks as a document source payload.
const SampleBooksJSON = `[
  {"title": "Alice in Wonderland", "text": "Alice falls into a rabbit hole and enters a world full of imagination."},
  {"title": "The Lord of the Rings: The Fellowship of the Ring.", "text": "An unusual alliance of man, elf, dwarf, wizard and hobbit seek to destroy a powerful ring."}
]`

// CreateTestEngine creates a new engine that is shut down when the test ends.
func CreateTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.NewEngine(engine.Options{MaxWorkers: 2, CacheSize: 16})
	t.Cleanup(eng.Shutdown)
	return eng
}

// CreateTestIndex creates a test index with default settings
func CreateTestIndex(t *testing.T, eng *engine.Engine, indexName string) config.IndexSettings {
	t.Helper()
	settings := config.IndexSettings{Name: indexName}
	require.NoError(t, eng.CreateIndex(settings), "Failed to create test index")
	return settings
}

// CreateBuiltIndex creates an index and synchronously builds it from SampleBooks.
func CreateBuiltIndex(t *testing.T, eng *engine.Engine, indexName string) services.IndexAccessor {
	t.Helper()
	CreateTestIndex(t, eng, indexName)
	accessor, err := eng.GetIndex(indexName)
	require.NoError(t, err, "Failed to get index accessor")
	accessor.BuildIndex(SampleBooks())
	return accessor
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      5 * time.Second,
		PollInterval: 5 * time.Millisecond,
	}
}

// WaitForJob polls a job until it reaches a final status or times out.
func WaitForJob(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = jobManager.GetJob(jobID)
		return err == nil && job.Status.IsFinal()
	}, opts.Timeout, opts.PollInterval, "job %s did not finish", jobID)
	return job
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
