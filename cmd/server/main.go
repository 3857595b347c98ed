package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/attribution"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/cache"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/config"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/errors"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/history"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/middleware"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/model"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/monitoring"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/preprocess"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/ratelimit"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/security"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/types"
)

const serviceVersion = "1.0.0"

// server bundles the frozen artifacts and injected collaborators the
// handlers need. The ensemble, pipeline, and aggregator are loaded once
// at startup and read-only thereafter; a nil ensemble or pipeline means
// loading failed and every serving call fails fast with
// ModelUnavailable instead of attempting partial computation.
type server struct {
	cfg        *config.Config
	ensemble   *model.Ensemble
	pipeline   *preprocess.Pipeline
	aggregator *attribution.Aggregator
	metrics    *monitoring.Metrics
	logger     *monitoring.Logger
	store      *history.Store
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", getEnvOrDefault("CONFIG_PATH", "config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	srv := newServer(cfg)
	if srv.store != nil {
		defer srv.store.Close()
	}

	r := setupRouter(srv)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "version", serviceVersion)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// newServer loads the frozen artifacts and wires the collaborators. A
// failed artifact load is logged but does not abort startup: the
// service comes up degraded and reports the state through /health,
// while serving calls return 503.
func newServer(cfg *config.Config) *server {
	srv := &server{
		cfg:     cfg,
		metrics: monitoring.NewMetrics(),
		logger:  monitoring.NewLogger(),
	}

	ensemble, err := model.Load(cfg.Model.Path)
	if err != nil {
		slog.Error("Failed to load model", "path", cfg.Model.Path, "error", err)
	}

	pipeline, err := preprocess.Load(cfg.Model.PreprocessorPath)
	if err != nil {
		slog.Error("Failed to load preprocessor", "path", cfg.Model.PreprocessorPath, "error", err)
	}

	if ensemble != nil && pipeline != nil {
		if err := checkLayout(ensemble, pipeline); err != nil {
			slog.Error("Model and preprocessor layouts disagree", "error", err)
			ensemble, pipeline = nil, nil
		}
	}

	if ensemble != nil && pipeline != nil {
		engine, err := attribution.NewEngine(ensemble)
		if err != nil {
			slog.Error("Failed to build attribution engine", "error", err)
		} else {
			srv.ensemble = ensemble
			srv.pipeline = pipeline
			srv.aggregator = attribution.NewAggregator(ensemble, engine, cfg.TopK)
			slog.Info("Model and preprocessor loaded",
				"model_type", ensemble.ModelType,
				"n_features", ensemble.NumFeatures,
				"trees", len(ensemble.Trees),
			)
		}
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DataDir)
		if err != nil {
			slog.Error("Failed to open history store", "error", err)
		} else {
			srv.store = store
		}
	}

	return srv
}

// checkLayout verifies that the pipeline's output layout matches the
// ensemble's trained input layout exactly. A mismatch is a deployment
// error, never adapted at runtime.
func checkLayout(ensemble *model.Ensemble, pipeline *preprocess.Pipeline) error {
	if pipeline.NumFeatures() != ensemble.NumFeatures {
		return errors.NewFeatureMismatchError(
			"preprocessor produces "+strconv.Itoa(pipeline.NumFeatures())+
				" features, model expects "+strconv.Itoa(ensemble.NumFeatures), nil)
	}
	names := pipeline.FeatureNames()
	for i, name := range ensemble.FeatureNames {
		if names[i] != name {
			return errors.NewFeatureMismatchError(
				"feature order mismatch at position "+strconv.Itoa(i)+
					": preprocessor "+names[i]+", model "+name, nil)
		}
	}
	return nil
}

// setupRouter registers middleware and routes on a fresh engine.
func setupRouter(srv *server) *gin.Engine {
	r := gin.New()

	r.Use(monitoring.Middleware(srv.metrics, srv.logger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(cors.Default())
	r.Use(security.HeadersMiddleware())
	r.Use(middleware.Gzip())

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: srv.cfg.RateLimit.RequestsPerMinute,
		BurstMultiplier:   srv.cfg.RateLimit.BurstMultiplier,
	})
	r.Use(ratelimit.Middleware(limiter))

	// The frozen artifacts make serving deterministic, so identical
	// single-prediction payloads can be answered from cache.
	predictionCache := cache.New(5 * time.Minute)

	r.GET("/", srv.handleRoot)
	r.GET("/health", srv.handleHealth)
	r.POST("/predict", cache.Middleware(predictionCache), srv.handlePredict)
	r.POST("/batch_predict", srv.handleBatchPredict)
	r.GET("/metrics", srv.handleMetrics)
	r.GET("/model_info", srv.handleModelInfo)
	r.GET("/history", srv.handleHistory)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func (s *server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Loan Default Prediction API with XAI is running",
		"version": serviceVersion,
		"endpoints": []string{
			"/health", "/predict", "/batch_predict", "/metrics", "/model_info", "/history",
		},
	})
}

func (s *server) handleHealth(c *gin.Context) {
	status := "healthy"
	if s.ensemble == nil || s.pipeline == nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:             status,
		ModelLoaded:        s.ensemble != nil,
		PreprocessorLoaded: s.pipeline != nil,
		UptimeSeconds:      time.Since(s.metrics.StartTime).Seconds(),
	})
}

// ready fails fast when the frozen artifacts are absent.
func (s *server) ready() error {
	if s.ensemble == nil || s.pipeline == nil || s.aggregator == nil {
		return errors.NewModelUnavailableError("model or preprocessor not loaded", nil)
	}
	return nil
}

func (s *server) handlePredict(c *gin.Context) {
	start := time.Now()

	if err := s.ready(); err != nil {
		s.respondError(c, err)
		return
	}

	var app types.LoanApplication
	if err := c.ShouldBindJSON(&app); err != nil {
		s.respondError(c, errors.NewValidationError("invalid loan application", err.Error()))
		return
	}

	record, err := s.aggregator.ExplainRow(s.pipeline.Transform(app.Row()))
	if err != nil {
		s.respondError(c, err)
		return
	}

	duration := time.Since(start)
	s.metrics.RecordPrediction(record.Prediction == attribution.LabelApproved)
	s.logger.PredictionLogger(record.Prediction, record.Probability, duration)
	s.audit(record, "single")

	c.JSON(http.StatusOK, types.PredictionResponse{
		Prediction:          record.Prediction,
		Probability:         record.Probability,
		ShapContributions:   record.RawContributions,
		TopFactors:          record.TopFactors,
		ResponseTimeSeconds: roundSeconds(duration),
	})
}

func (s *server) handleBatchPredict(c *gin.Context) {
	start := time.Now()

	if err := s.ready(); err != nil {
		s.respondError(c, err)
		return
	}

	var req types.BatchPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError("invalid batch request", err.Error()))
		return
	}

	vectors := make([][]float64, len(req.Applications))
	for i, app := range req.Applications {
		vectors[i] = s.pipeline.Transform(app.Row())
	}

	records, summary, err := s.aggregator.RunBatch(vectors)
	if err != nil {
		s.respondError(c, err)
		return
	}

	duration := time.Since(start)
	s.metrics.RecordBatchPrediction(summary.TotalProcessed, summary.Approved, summary.Rejected)
	s.logger.BatchLogger(summary.TotalProcessed, summary.Approved, summary.Rejected, duration)
	for _, record := range records {
		s.audit(record, "batch")
	}

	c.JSON(http.StatusOK, types.BatchPredictionResponse{
		Predictions:         records,
		TotalProcessed:      summary.TotalProcessed,
		Approved:            summary.Approved,
		Rejected:            summary.Rejected,
		ApprovalRatePercent: summary.ApprovalRatePercent,
		ResponseTimeSeconds: roundSeconds(duration),
	})
}

func (s *server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *server) handleModelInfo(c *gin.Context) {
	if err := s.ready(); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ModelInfoResponse{
		ModelType:    s.ensemble.ModelType,
		NumFeatures:  s.ensemble.NumFeatures,
		FeatureNames: s.ensemble.FeatureNames,
	})
}

func (s *server) handleHistory(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, errors.NewModelUnavailableError("history store not available", nil))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondError(c, errors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	records, err := s.store.List(limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// audit records one outcome in the history store. Audit failures never
// fail the request.
func (s *server) audit(record attribution.PredictionRecord, source string) {
	if s.store == nil {
		return
	}

	topFeature := ""
	if len(record.TopFactors) > 0 {
		topFeature = record.TopFactors[0].Feature
	}

	if err := s.store.Insert(record.Prediction, record.Probability, topFeature, source); err != nil {
		slog.Warn("Failed to audit prediction", "error", err)
	}
}

func (s *server) respondError(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
