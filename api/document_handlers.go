package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-book-indexer/internal/source"
)

// LoadRequest asks the engine to fetch a document collection and build from it.
type LoadRequest struct {
	Location string `json:"location"`
}

// BuildDocumentsHandler replaces the contents of an index with the posted
// collection. Request Body: JSON array of document objects.
// The build runs in a background job; the response carries its ID.
func (api *API) BuildDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	docs, err := source.Decode(c.Request.Body)
	if err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	jobID, err := api.engine.BuildIndexAsync(indexName, docs)
	if err != nil {
		sendAsyncError(c, "build index", indexName, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "accepted",
		"message":   "Index build started for '" + indexName + "'",
		"job_id":    jobID,
		"documents": len(docs),
	})
}

// LoadDocumentsHandler fetches a collection from a location and rebuilds the
// index from it in a background job. Request Body: LoadRequest
func (api *API) LoadDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	var req LoadRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	req.Location = strings.TrimSpace(req.Location)
	if result := ValidateLocation(req.Location, api.opts.AllowLocalFiles); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	src := source.FromLocation(req.Location, api.opts.SourceOptions)
	jobID, err := api.engine.LoadIndexAsync(indexName, src)
	if err != nil {
		sendAsyncError(c, "load index", indexName, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Index load started for '" + indexName + "' from " + src.Name(),
		"job_id":  jobID,
	})
}

// GetDocumentHandler returns the document at a position of the current build.
func (api *API) GetDocumentHandler(c *gin.Context) {
	indexAccessor, indexName, ok := api.accessor(c)
	if !ok {
		return
	}

	rawID := c.Param("documentId")
	docID, result := ValidateDocumentID(rawID)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	doc, found := indexAccessor.Document(docID)
	if !found {
		SendDocumentNotFoundError(c, rawID, indexName)
		return
	}
	c.JSON(http.StatusOK, doc)
}
