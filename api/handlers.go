package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-book-indexer/internal/logger"
	"github.com/gcbaptista/go-book-indexer/internal/metrics"
	"github.com/gcbaptista/go-book-indexer/internal/source"
	"github.com/gcbaptista/go-book-indexer/services"
)

// Engine is what the API needs from the index engine.
type Engine interface {
	services.AsyncIndexManager
	services.JobManager
}

// Options configures the routes and middleware.
type Options struct {
	Metrics         *metrics.Metrics
	MaxBodyBytes    int64
	RateLimit       float64 // requests per second, 0 disables limiting
	RateBurst       int
	SourceOptions   source.HTTPOptions
	AllowLocalFiles bool
}

// API holds dependencies for API handlers, primarily the index engine.
type API struct {
	engine    Engine
	opts      Options
	startedAt time.Time
	log       *slog.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(engine Engine, opts Options) *API {
	return &API{
		engine:    engine,
		opts:      opts,
		startedAt: time.Now(),
		log:       logger.WithComponent("api"),
	}
}

// SetupRoutes installs the middleware and every route of the book indexer.
func SetupRoutes(router *gin.Engine, engine Engine, opts Options) {
	apiHandler := NewAPI(engine, opts)

	router.Use(RequestIDMiddleware(), CORSMiddleware(), LoggingMiddleware(apiHandler.log))
	if opts.Metrics != nil {
		router.Use(MetricsMiddleware(opts.Metrics))
	}
	if opts.RateLimit > 0 {
		router.Use(RateLimitMiddleware(opts.RateLimit, opts.RateBurst))
	}
	if opts.MaxBodyBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(opts.MaxBodyBytes))
	}

	// Health check route
	router.GET("/health", apiHandler.HealthCheckHandler)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Job management routes
	router.GET("/jobs/:jobId", apiHandler.GetJobHandler)

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)
		indexRoutes.GET("", apiHandler.ListIndexesHandler)
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)
		indexRoutes.GET("/:indexName/index", apiHandler.GetInvertedIndexHandler)
		indexRoutes.POST("/:indexName/load", apiHandler.LoadDocumentsHandler)

		// Document routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.BuildDocumentsHandler)
			docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)
		}

		// Search routes per index
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
		indexRoutes.GET("/:indexName/_search", apiHandler.SearchQueryStringHandler)
	}
}

// HealthCheckHandler reports liveness and the number of indexes.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"indexes": len(api.engine.ListIndexes()),
		"uptime":  time.Since(api.startedAt).Round(time.Second).String(),
	})
}

// accessor resolves the :indexName parameter, writing the error response on failure.
func (api *API) accessor(c *gin.Context) (services.IndexAccessor, string, bool) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return nil, indexName, false
	}

	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendEngineError(c, "get index", indexName, err)
		return nil, indexName, false
	}
	return indexAccessor, indexName, true
}
