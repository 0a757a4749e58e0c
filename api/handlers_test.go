package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-book-indexer/internal/engine"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	testutil "github.com/gcbaptista/go-book-indexer/internal/testing"
	"github.com/gcbaptista/go-book-indexer/model"
)

type matchBody struct {
	Found     bool  `json:"found"`
	Documents []int `json:"documents"`
}

type searchBody struct {
	Terms   []string             `json:"terms"`
	Results map[string]matchBody `json:"results"`
	Index   string               `json:"index"`
	QueryID string               `json:"query_id"`
}

func setupTestRouter(t *testing.T, opts Options) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := testutil.CreateTestEngine(t)
	router := gin.New()
	SetupRoutes(router, eng, opts)
	return router, eng
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHealthCheckHandler(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})

	w := doRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestCreateIndexHandler(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{"valid index creation", map[string]interface{}{"name": "books"}, http.StatusCreated, ""},
		{"custom fields", map[string]interface{}{"name": "articles", "fields": []string{"headline", "body"}}, http.StatusCreated, ""},
		{"duplicate index", map[string]interface{}{"name": "books"}, http.StatusConflict, ErrorCodeIndexExists},
		{"invalid JSON", "invalid json", http.StatusBadRequest, ErrorCodeValidationFailed},
		{"missing index name", map[string]interface{}{"fields": []string{"title"}}, http.StatusBadRequest, ErrorCodeValidationFailed},
		{"duplicate fields", map[string]interface{}{"name": "x", "fields": []string{"a", "a"}}, http.StatusBadRequest, ErrorCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/indexes", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
			}
		})
	}

	w := doRequest(router, http.MethodGet, "/indexes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"indexes": ["articles", "books"], "count": 2}`, w.Body.String())
}

func TestGetAndDeleteIndexHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	w := doRequest(router, http.MethodGet, "/indexes/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Settings struct {
			Name   string   `json:"name"`
			Fields []string `json:"fields"`
		} `json:"settings"`
		Stats struct {
			Built     bool `json:"built"`
			Documents int  `json:"documents"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"title", "text"}, body.Settings.Fields)
	assert.True(t, body.Stats.Built)
	assert.Equal(t, 2, body.Stats.Documents)

	w = doRequest(router, http.MethodDelete, "/indexes/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/indexes/books", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeIndexNotFound, decodeError(t, w).Code)

	w = doRequest(router, http.MethodDelete, "/indexes/books", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildDocumentsHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateTestIndex(t, eng, "books")

	w := doRequest(router, http.MethodPut, "/indexes/books/documents", testutil.SampleBooksJSON)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted struct {
		JobID     string `json:"job_id"`
		Documents int    `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, 2, accepted.Documents)

	job := testutil.WaitForJob(t, eng, accepted.JobID, testutil.DefaultJobPollingOptions())
	testutil.AssertJobCompleted(t, job, model.JobTypeBuildIndex, "books")

	w = doRequest(router, http.MethodGet, "/jobs/"+accepted.JobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = doRequest(router, http.MethodGet, "/indexes/books/documents/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fellowship")
}

func TestBuildDocumentsHandler_Errors(t *testing.T) {
	router, eng := setupTestRouter(t, Options{MaxBodyBytes: 64})
	testutil.CreateTestIndex(t, eng, "books")

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{"not an array", "/indexes/books/documents", `{"title": "x"}`, http.StatusBadRequest, ErrorCodeInvalidJSON},
		{"array of strings", "/indexes/books/documents", `["alice"]`, http.StatusBadRequest, ErrorCodeInvalidJSON},
		{"null", "/indexes/books/documents", `null`, http.StatusBadRequest, ErrorCodeInvalidJSON},
		{"too large", "/indexes/books/documents", `[{"text": "` + strings.Repeat("a", 100) + `"}]`, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge},
		{"unknown index", "/indexes/missing/documents", `[]`, http.StatusNotFound, ErrorCodeIndexNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestAsyncHandlers_AfterShutdown(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateTestIndex(t, eng, "books")
	eng.Shutdown()

	w := doRequest(router, http.MethodPut, "/indexes/books/documents", testutil.SampleBooksJSON)
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	apiErr := decodeError(t, w)
	assert.Equal(t, ErrorCodeJobExecutionFailed, apiErr.Code)
	assert.Contains(t, apiErr.Message, "build index")

	w = doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: "https://example.com/books.json"})
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.Equal(t, ErrorCodeJobExecutionFailed, decodeError(t, w).Code)
}

func TestLoadDocumentsHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(path, []byte(testutil.SampleBooksJSON), 0600))

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testutil.SampleBooksJSON))
	}))
	defer remote.Close()

	t.Run("remote location", func(t *testing.T) {
		router, eng := setupTestRouter(t, Options{})
		testutil.CreateTestIndex(t, eng, "books")

		w := doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: remote.URL})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		var accepted struct {
			JobID string `json:"job_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

		job := testutil.WaitForJob(t, eng, accepted.JobID, testutil.DefaultJobPollingOptions())
		testutil.AssertJobCompleted(t, job, model.JobTypeLoadIndex, "books")
	})

	t.Run("local files disabled", func(t *testing.T) {
		router, eng := setupTestRouter(t, Options{})
		testutil.CreateTestIndex(t, eng, "books")

		w := doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: path})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("local files enabled", func(t *testing.T) {
		router, eng := setupTestRouter(t, Options{AllowLocalFiles: true})
		testutil.CreateTestIndex(t, eng, "books")

		w := doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: path})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	})

	t.Run("missing file fails the job", func(t *testing.T) {
		router, eng := setupTestRouter(t, Options{AllowLocalFiles: true})
		testutil.CreateTestIndex(t, eng, "books")

		w := doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: filepath.Join(dir, "missing.json")})
		require.Equal(t, http.StatusAccepted, w.Code)
		var accepted struct {
			JobID string `json:"job_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

		job := testutil.WaitForJob(t, eng, accepted.JobID, testutil.DefaultJobPollingOptions())
		assert.Equal(t, model.JobStatusFailed, job.Status)

		w = doRequest(router, http.MethodGet, "/indexes/books/jobs?status=failed", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), accepted.JobID)
	})

	t.Run("empty location", func(t *testing.T) {
		router, eng := setupTestRouter(t, Options{})
		testutil.CreateTestIndex(t, eng, "books")

		w := doRequest(router, http.MethodPost, "/indexes/books/load", LoadRequest{Location: "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetDocumentHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"first document", "/indexes/books/documents/0", http.StatusOK},
		{"out of range", "/indexes/books/documents/2", http.StatusNotFound},
		{"negative", "/indexes/books/documents/-1", http.StatusNotFound},
		{"not a number", "/indexes/books/documents/abc", http.StatusBadRequest},
		{"unknown index", "/indexes/missing/documents/0", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestGetInvertedIndexHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	var full struct {
		Terms map[string][]int `json:"terms"`
		Count int              `json:"count"`
	}
	w := doRequest(router, http.MethodGet, "/indexes/books/index", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &full))
	assert.Equal(t, []int{0}, full.Terms["alice"])
	assert.Equal(t, []int{1}, full.Terms["dwarf"])
	assert.Equal(t, len(full.Terms), full.Count)

	var sub struct {
		Document int              `json:"document"`
		Terms    map[string][]int `json:"terms"`
	}
	w = doRequest(router, http.MethodGet, "/indexes/books/index?document=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Contains(t, sub.Terms, "alice")
	assert.NotContains(t, sub.Terms, "dwarf")

	w = doRequest(router, http.MethodGet, "/indexes/books/index?document=99", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = doRequest(router, http.MethodGet, "/indexes/books/index?document=first", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	tests := []struct {
		name      string
		body      string
		wantTerms []string
		found     map[string][]int
		notFound  []string
	}{
		{
			name:      "single words",
			body:      `{"query": ["alice", "dwarf", "king"]}`,
			wantTerms: []string{"alice", "dwarf", "king"},
			found:     map[string][]int{"alice": {0}, "dwarf": {1}},
			notFound:  []string{"king"},
		},
		{
			name:      "nested and phrase",
			body:      `{"query": [["alice", "dwarf"], "ring and king"]}`,
			wantTerms: []string{"alice", "dwarf", "ring", "king"},
			found:     map[string][]int{"alice": {0}, "dwarf": {1}, "ring": {1}},
			notFound:  []string{"king"},
		},
		{
			name:      "plain string",
			body:      `{"query": "Alice!"}`,
			wantTerms: []string{"alice"},
			found:     map[string][]int{"alice": {0}},
		},
		{
			name:      "stop words only",
			body:      `{"query": "the and of"}`,
			wantTerms: []string{},
		},
		{
			name:      "no query",
			body:      `{}`,
			wantTerms: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/indexes/books/_search", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var body searchBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "books", body.Index)
			assert.NotEmpty(t, body.QueryID)
			assert.Equal(t, tt.wantTerms, body.Terms)
			assert.Len(t, body.Results, len(tt.wantTerms))
			for term, docs := range tt.found {
				assert.True(t, body.Results[term].Found, term)
				assert.Equal(t, docs, body.Results[term].Documents, term)
			}
			for _, term := range tt.notFound {
				assert.False(t, body.Results[term].Found, term)
				assert.Empty(t, body.Results[term].Documents, term)
			}
		})
	}
}

func TestSearchHandler_Errors(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	w := doRequest(router, http.MethodPost, "/indexes/books/_search", `{"query": {"title": "alice"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorCodeInvalidQuery, decodeError(t, w).Code)

	w = doRequest(router, http.MethodPost, "/indexes/books/_search", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorCodeInvalidJSON, decodeError(t, w).Code)

	w = doRequest(router, http.MethodPost, "/indexes/missing/_search", `{"query": "alice"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchQueryStringHandler(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateBuiltIndex(t, eng, "books")

	w := doRequest(router, http.MethodGet, "/indexes/books/_search?q=alice&q=ring+and+king", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"alice", "ring", "king"}, body.Terms)
	assert.Equal(t, []int{1}, body.Results["ring"].Documents)
	assert.False(t, body.Results["king"].Found)
}

func TestSearchUnbuiltIndex(t *testing.T) {
	router, eng := setupTestRouter(t, Options{})
	testutil.CreateTestIndex(t, eng, "books")

	w := doRequest(router, http.MethodGet, "/indexes/books/_search?q=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Results["alice"].Found)
}

func TestJobHandlers(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})

	w := doRequest(router, http.MethodGet, "/jobs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeJobNotFound, decodeError(t, w).Code)

	w = doRequest(router, http.MethodGet, "/indexes/books/jobs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)

	w = doRequest(router, http.MethodGet, "/indexes/books/jobs?status=sleeping", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router, _ := setupTestRouter(t, Options{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", nil).Code)

	w := doRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrorCodeRateLimited, decodeError(t, w).Code)
	assert.NotEmpty(t, decodeError(t, w).RequestID)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	router, _ := setupTestRouter(t, Options{Metrics: m})

	doRequest(router, http.MethodGet, "/health", nil)

	w := doRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})
	w := doRequest(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})
	w := doRequest(router, http.MethodOptions, "/indexes", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/indexes/missing", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "trace-123", decodeError(t, w).RequestID)
}
