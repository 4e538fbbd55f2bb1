// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lookahead-backtest/internal/api/handlers"
	"lookahead-backtest/internal/api/middleware"
	"lookahead-backtest/internal/archive"
	"lookahead-backtest/internal/data"
)

// Options configures NewRouter.
type Options struct {
	CatalogPath string
	BatteryDir  string
	StaticDir   string
	Cache       *data.SeriesCache
	Archive     *archive.Archive // optional
	Logger      *logrus.Logger
}

// NewRouter builds the API router.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.ErrorHandler(opts.Logger))

	store := handlers.NewDatasetStore(opts.CatalogPath, opts.Cache)
	batteryHandler := handlers.NewBatteryHandler(opts.BatteryDir, opts.Logger)
	simulateHandler := handlers.NewSimulateHandler(store, batteryHandler, opts.Logger)
	sweepHandler := handlers.NewSweepHandler(store, batteryHandler, opts.Archive, opts.Logger)
	datasetHandler := handlers.NewDatasetHandler(store)
	rankHandler := handlers.NewRankHandler(store)
	runsHandler := handlers.NewRunsHandler(opts.Archive)
	strategyHandler := handlers.NewStrategyHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulate", simulateHandler.RunSimulation)
		v1.POST("/sweep", sweepHandler.RunSweep)

		v1.GET("/batteries", batteryHandler.ListBatteries)
		v1.GET("/strategies", strategyHandler.ListStrategies)
		v1.GET("/datasets", datasetHandler.ListDatasets)
		v1.GET("/rank", rankHandler.RankDatasets)

		v1.GET("/runs", runsHandler.ListRuns)
		v1.GET("/runs/:id", runsHandler.GetRun)
		v1.DELETE("/runs/:id", runsHandler.DeleteRun)
	}

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			router.Static("/assets", opts.StaticDir+"/assets")
			router.StaticFile("/favicon.ico", opts.StaticDir+"/favicon.ico")
			// Serve index.html for all non-API routes (SPA routing)
			router.NoRoute(func(c *gin.Context) {
				if strings.HasPrefix(c.Request.URL.Path, "/api") {
					c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
					return
				}
				c.File(opts.StaticDir + "/index.html")
			})
			opts.Logger.Infof("Serving static files from %s", opts.StaticDir)
		} else {
			opts.Logger.Infof("Static directory %s not found, skipping static file serving", opts.StaticDir)
		}
	}

	return router
}
