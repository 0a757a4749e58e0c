package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/index"
)

// CreateIndexHandler handles the request to create a new index.
// Request Body: config.IndexSettings
func (api *API) CreateIndexHandler(c *gin.Context) {
	var settings config.IndexSettings

	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(settings); err != nil {
		SendEngineError(c, "create index", settings.Name, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Index '" + settings.Name + "' created successfully",
		"settings": settings,
	})
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler returns the settings and build statistics of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	indexAccessor, _, ok := api.accessor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settings": indexAccessor.Settings(),
		"stats":    indexAccessor.Stats(),
	})
}

// DeleteIndexHandler handles deleting an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	if err := api.engine.DeleteIndex(indexName); err != nil {
		SendEngineError(c, "delete index", indexName, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// GetInvertedIndexHandler returns the whole term -> documents mapping, or with
// ?document=N only the terms occurring in document N.
func (api *API) GetInvertedIndexHandler(c *gin.Context) {
	indexAccessor, indexName, ok := api.accessor(c)
	if !ok {
		return
	}

	var terms map[string]index.PostingList
	response := gin.H{"index": indexName}

	if raw, present := c.GetQuery("document"); present {
		docID, result := ValidateDocumentID(raw)
		if result.HasErrors() {
			SendValidationError(c, result)
			return
		}
		terms = indexAccessor.GetDocumentIndex(docID)
		response["document"] = docID
	} else {
		terms = indexAccessor.GetIndex()
	}

	response["terms"] = terms
	response["count"] = len(terms)
	c.JSON(http.StatusOK, response)
}
