package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gcbaptista/go-book-indexer/internal/search"
	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
)

// SearchRequest defines the structure for search queries.
// Query may be a string or an arbitrarily nested array of strings.
type SearchRequest struct {
	Query interface{} `json:"query"`
}

// SearchResponse is a search result annotated with request metadata.
type SearchResponse struct {
	search.Result
	Index   string `json:"index"`
	Took    int64  `json:"took"`     // milliseconds
	QueryID string `json:"query_id"` // unique UUID for this search query
}

// SearchHandler handles search requests to an index.
// Request Body: SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.accessor(c)
	if !ok {
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	query, err := tokenizer.FromValue(req.Query)
	if err != nil {
		SendInvalidQueryError(c, err)
		return
	}

	api.respondSearch(c, indexName, indexAccessor.SearchIndex(query), startTime)
}

// SearchQueryStringHandler searches with the terms of every q parameter,
// e.g. GET /indexes/books/_search?q=alice&q=ring+and+king
func (api *API) SearchQueryStringHandler(c *gin.Context) {
	startTime := time.Now()
	indexAccessor, indexName, ok := api.accessor(c)
	if !ok {
		return
	}

	query := tokenizer.Strings(c.QueryArray("q")...)
	api.respondSearch(c, indexName, indexAccessor.SearchIndex(query), startTime)
}

func (api *API) respondSearch(c *gin.Context, indexName string, result search.Result, startTime time.Time) {
	c.JSON(http.StatusOK, SearchResponse{
		Result:  result,
		Index:   indexName,
		Took:    time.Since(startTime).Milliseconds(),
		QueryID: uuid.New().String(),
	})
}
