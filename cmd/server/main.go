package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"medrag/internal/adapter/blobstore"
	"medrag/internal/adapter/cache"
	"medrag/internal/adapter/embedder"
	"medrag/internal/adapter/llm"
	"medrag/internal/adapter/rag_http"
	"medrag/internal/adapter/vectorstore"
	"medrag/internal/infra"
	"medrag/internal/infra/config"
	"medrag/internal/infra/httpclient"
	"medrag/internal/infra/logger"
	"medrag/internal/usecase"
)

func main() {
	// 1. Load and validate config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Initialize adapters
	redisClient := infra.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	defer func() { _ = redisClient.Close() }()
	extCache := cache.NewRedisCache(redisClient, log)

	blobs, err := blobstore.NewMinioStore(cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobUseSSL, cfg.BlobBucket)
	if err != nil {
		log.Error("failed to connect to object store", "error", err)
		os.Exit(1)
	}

	store := vectorstore.NewPgVectorStore(dbPool)
	encoder := embedder.NewHFEmbedder(
		cfg.EmbedderURL,
		cfg.EmbeddingModel,
		cfg.EmbedderToken,
		embedder.RetryPolicy{
			MaxAttempts: cfg.EmbeddingRetries,
			Delay:       time.Duration(cfg.EmbeddingDelaySeconds) * time.Second,
		},
		httpclient.NewPooledClient(30*time.Second),
		log,
	)
	chatClient := llm.NewOpenAIChatClient(cfg.LLMBaseURL, cfg.LLMModel, "", httpclient.NewPooledClient(120*time.Second))

	// 5. Initialize usecases
	side := usecase.NewSideDataEnricher(extCache, blobs, cfg.BlobPrefix, log)
	retriever := usecase.NewRetriever(encoder, store, side, extCache, usecase.RetrievalConfig{
		ScoreThreshold: cfg.ScoreThreshold,
		Candidates:     cfg.VectorSearchCandidates,
	}, log)
	ranker := usecase.NewDocumentRanker(retriever, log)
	assembler := usecase.NewContextAssembler(cfg.MaxChunks)
	generator := usecase.NewResponseGenerator(chatClient, log)
	pipeline := usecase.NewPipeline(retriever, ranker, assembler, generator, usecase.PipelineConfig{
		DefaultTopK:        cfg.MaxChunks,
		DocSelectionChunks: cfg.DocSelectionChunks,
		MinDocumentChunks:  cfg.MinDocumentChunks,
		MaxDocuments:       cfg.MaxDocumentsReturned,
		Normalization:      cfg.Normalization(),
	}, log)

	// 6. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	// 7. Register handlers
	handler := rag_http.NewHandler(pipeline, log)
	rag_http.RegisterRoutes(e, handler)

	// 8. Health checks
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 9. Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
