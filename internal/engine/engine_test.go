package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/index"
	"github.com/gcbaptista/go-book-indexer/internal/engine"
	internalErrors "github.com/gcbaptista/go-book-indexer/internal/errors"
	"github.com/gcbaptista/go-book-indexer/internal/source"
	testutil "github.com/gcbaptista/go-book-indexer/internal/testing"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
	"github.com/gcbaptista/go-book-indexer/model"
)

func TestEngine_CreateIndex(t *testing.T) {
	eng := testutil.CreateTestEngine(t)

	require.NoError(t, eng.CreateIndex(config.IndexSettings{Name: "books"}))

	err := eng.CreateIndex(config.IndexSettings{Name: "books"})
	assert.ErrorIs(t, err, internalErrors.ErrIndexAlreadyExists)

	err = eng.CreateIndex(config.IndexSettings{Name: " "})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	err = eng.CreateIndex(config.IndexSettings{Name: "dupes", Fields: []string{"title", "title"}})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	settings, err := eng.GetIndexSettings("books")
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "text"}, settings.Fields)
}

func TestEngine_GetAndDeleteIndex(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "books")

	_, err := eng.GetIndex("missing")
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
	_, err = eng.GetIndexSettings("missing")
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)

	require.NoError(t, eng.DeleteIndex("books"))
	assert.ErrorIs(t, eng.DeleteIndex("books"), internalErrors.ErrIndexNotFound)
	_, err = eng.GetIndex("books")
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
}

func TestEngine_ListIndexesSorted(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	assert.Empty(t, eng.ListIndexes())

	for _, name := range []string{"poems", "articles", "books"} {
		testutil.CreateTestIndex(t, eng, name)
	}
	assert.Equal(t, []string{"articles", "books", "poems"}, eng.ListIndexes())
}

func TestEngine_BuildIndexAsync(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "books")

	docs := testutil.SampleBooks()
	jobID, err := eng.BuildIndexAsync("books", docs)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// Mutating the caller's slice after submission has no effect
	docs[0]["title"] = "Moby Dick"

	job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeBuildIndex, "books")
	require.NotNil(t, job.Progress)
	assert.Equal(t, 2, job.Progress.Current)
	assert.Equal(t, "2", job.Metadata["documents"])

	accessor, err := eng.GetIndex("books")
	require.NoError(t, err)
	result := accessor.SearchIndex(tokenizer.Strings("alice", "moby"))
	assert.Equal(t, index.PostingList{0}, result.Matches["alice"].Documents())
	assert.False(t, result.Matches["moby"].IsFound())
}

func TestEngine_BuildIndexAsync_UnknownIndex(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	_, err := eng.BuildIndexAsync("missing", testutil.SampleBooks())
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
	_, err = eng.LoadIndexAsync("missing", source.NewStaticSource("s", nil))
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
}

func TestEngine_LoadIndexAsync(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "books")

	jobID, err := eng.LoadIndexAsync("books", source.NewStaticSource("sample", testutil.SampleBooks()))
	require.NoError(t, err)

	job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeLoadIndex, "books")
	assert.Equal(t, "sample", job.Metadata["source"])

	accessor, _ := eng.GetIndex("books")
	assert.Equal(t, 2, accessor.Stats().Documents)
}

type brokenSource struct{}

func (brokenSource) Name() string { return "broken" }
func (brokenSource) Load(ctx context.Context) ([]model.Document, error) {
	return nil, internalErrors.NewLoadError("broken", errors.New("no such host"))
}

func TestEngine_LoadIndexAsync_Failure(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	accessor := testutil.CreateBuiltIndex(t, eng, "books")

	jobID, err := eng.LoadIndexAsync("books", brokenSource{})
	require.NoError(t, err)

	job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no such host")

	// The previous build is still served
	assert.Equal(t, uint64(1), accessor.Stats().Generation)
	result := accessor.SearchIndex(tokenizer.Word("alice"))
	assert.True(t, result.Matches["alice"].IsFound())

	failed := model.JobStatusFailed
	assert.Len(t, eng.ListJobs("books", &failed), 1)
}

func TestEngine_JobsAfterShutdown(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "books")
	eng.Shutdown()

	_, err := eng.BuildIndexAsync("books", testutil.SampleBooks())
	assert.Error(t, err)

	_, err = eng.GetJob("missing")
	assert.ErrorIs(t, err, internalErrors.ErrJobNotFound)
}

func TestEngine_ConcurrentBuildsAndSearches(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	accessor := testutil.CreateBuiltIndex(t, eng, "books")

	var jobIDs []string
	for i := 0; i < 10; i++ {
		jobID, err := eng.BuildIndexAsync("books", testutil.SampleBooks())
		require.NoError(t, err)
		jobIDs = append(jobIDs, jobID)
	}

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		result := accessor.SearchIndex(tokenizer.Word("dwarf"))
		assert.Equal(t, index.PostingList{1}, result.Matches["dwarf"].Documents())
	}

	for _, jobID := range jobIDs {
		job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
		assert.Equal(t, model.JobStatusCompleted, job.Status)
	}
	gen := accessor.Stats().Generation
	assert.GreaterOrEqual(t, gen, uint64(2))
	assert.LessOrEqual(t, gen, uint64(11))
}

func TestEngine_LastSubmittedBuildWins(t *testing.T) {
	eng := engine.NewEngine(engine.Options{MaxWorkers: 4})
	t.Cleanup(eng.Shutdown)
	testutil.CreateTestIndex(t, eng, "books")

	words := []string{"aword", "bword", "cword", "dword", "eword", "fword", "gword", "hword"}
	var jobIDs []string
	for _, w := range words {
		jobID, err := eng.BuildIndexAsync("books", []model.Document{{"title": w}})
		require.NoError(t, err)
		jobIDs = append(jobIDs, jobID)
	}
	for _, jobID := range jobIDs {
		job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
		assert.Equal(t, model.JobStatusCompleted, job.Status)
	}

	accessor, err := eng.GetIndex("books")
	require.NoError(t, err)
	assert.Equal(t, map[string]index.PostingList{"hword": {0}}, accessor.GetIndex())
}

func TestEngine_JobBuildsIntoIndexItWasSubmittedTo(t *testing.T) {
	eng := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "books")

	src := &gatedSource{release: make(chan struct{}), docs: testutil.SampleBooks()}
	jobID, err := eng.LoadIndexAsync("books", src)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return src.started.Load() }, time.Second, time.Millisecond)

	require.NoError(t, eng.DeleteIndex("books"))
	recreated := testutil.CreateTestIndex(t, eng, "books")
	close(src.release)

	job := testutil.WaitForJob(t, eng, jobID, testutil.DefaultJobPollingOptions())
	assert.Equal(t, model.JobStatusCompleted, job.Status)

	accessor, err := eng.GetIndex(recreated.Name)
	require.NoError(t, err)
	assert.False(t, accessor.Stats().Built)
	assert.Empty(t, accessor.GetIndex())
}

type gatedSource struct {
	started atomic.Bool
	release chan struct{}
	docs    []model.Document
}

func (s *gatedSource) Name() string { return "gated" }

func (s *gatedSource) Load(ctx context.Context) ([]model.Document, error) {
	s.started.Store(true)
	select {
	case <-s.release:
		return s.docs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
