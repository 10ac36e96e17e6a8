package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maintcost_backend/branchdb"
	"github.com/mmdatafocus/maintcost_backend/config"
	"github.com/mmdatafocus/maintcost_backend/costreport"
	"github.com/mmdatafocus/maintcost_backend/middlewares"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// newReportService wires branches, executor, orchestrator and cache.
// Call it after Redis is connected so CACHE_BACKEND=redis can take effect.
func newReportService(logger *logrus.Logger) *costreport.Service {
	branches := config.GetBranches()
	executor := branchdb.NewExecutor(config.NewBranchConnector(logger), logger)
	orchestrator := branchdb.NewOrchestrator(branches, executor, logger)
	orchestrator.MaxRetries, orchestrator.BaseBackoff = config.BranchRetrySettings()

	svc := costreport.NewService(orchestrator, config.NewReportCache(), logger, costreport.Options{
		CacheEnabled:  config.ReportCacheEnabled(),
		TTL:           config.ReportCacheTTL(),
		StaleTTL:      config.ReportStaleTTL(),
		SlowThreshold: config.ReportSlowThreshold(),
	})
	if config.UseSyntheticData() {
		logger.WithFields(logrus.Fields{"field": "costreport"}).Warn("USE_SYNTHETIC_DATA=true; serving generated records")
		svc.WithSynthetic(costreport.NewSynthetic())
	}
	return svc
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Report-Warning", middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

// newRouter builds the API. limiter may be nil.
func newRouter(svc *costreport.Service, logger *logrus.Logger, limiter *middlewares.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationId())
	r.Use(middlewares.RequestLogger(logger))
	r.Use(cors.New(corsConfig()))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if limiter != nil {
		r.Use(limiter.RateLimitMiddleware)
	}
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.SessionMiddleware(nil))
	r.Use(middlewares.CustomErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api/maintenance")

	authed := api.Group("", middlewares.RequireUser())
	authed.GET("/records", costreport.RecordsHandler(svc))
	authed.GET("/summary", costreport.SummaryHandler(svc))
	authed.GET("/export", costreport.ExportHandler(svc))
	authed.GET("/cost-codes", costreport.CostCodesHandler(svc))

	admin := api.Group("", middlewares.RequireAdmin())
	admin.GET("/cost-codes/suggest", costreport.SuggestCostCodeHandler(svc))
	admin.GET("/branches/status", costreport.BranchStatusHandler(svc))
	admin.POST("/cache/invalidate", costreport.InvalidateCacheHandler(svc))

	r.NoRoute(customNotFoundHandler)
	return r
}

// bootRouter answers the startup probe while dependencies connect.
func bootRouter() *gin.Engine {
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.NoRoute(func(c *gin.Context) { c.AbortWithStatus(http.StatusServiceUnavailable) })
	return r
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening immediately; app endpoints return 503 until ready.
	var app atomic.Pointer[gin.Engine]
	app.Store(bootRouter())
	srv := &http.Server{
		Addr: ":" + port,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			app.Load().ServeHTTP(w, req)
		}),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	var limiter *middlewares.RateLimiter
	if config.CacheBackend() == "redis" || config.RateLimitEnabled() {
		if !config.ConnectRedisWithRetry(sigCtx) {
			logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable; using in-memory cache and no rate limiting")
		}
	}
	if config.RateLimitEnabled() && config.GetRedisDB() != nil {
		limit, window := config.RateLimitSettings()
		limiter = middlewares.NewRateLimiter(config.GetRedisDB(), limit, window)
	}

	svc := newReportService(logger)
	app.Store(newRouter(svc, logger, limiter))

	logger.WithFields(logrus.Fields{
		"info":     "Server Ready",
		"branches": len(config.GetBranches()),
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.LogError(logger, "server", "main", "graceful shutdown", nil, err)
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
