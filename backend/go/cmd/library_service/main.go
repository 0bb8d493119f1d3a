package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/database/minio"
	"github.com/jakebgo/library-mvp/backend/go/internal/database/mysql"
	redisdb "github.com/jakebgo/library-mvp/backend/go/internal/database/redis"
	"github.com/jakebgo/library-mvp/backend/go/internal/embedding"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/api"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/dal"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/embeddings"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/llms"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/pipeline"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/splitters"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/storages/vectorstore"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/service"
	"github.com/jakebgo/library-mvp/backend/go/internal/llm"
	"github.com/jakebgo/library-mvp/backend/go/pkg/cache"
	httpserver "github.com/jakebgo/library-mvp/backend/go/pkg/http"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ratelimiter"
)

func main() {
	// 1. Load .env (optional) and configuration
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
	configPath := os.Getenv("LIBRARY_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	appLogger := logger.New(cfg.App.Name, "", "")
	appLogger.WithPayload(map[string]interface{}{
		"version":      cfg.App.Version,
		"environment":  cfg.App.Environment,
		"vector_store": cfg.Library.VectorStore,
	}).Info("Starting library service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.WithErr("startup", err).Fatal("Library service stopped with error")
	}
	appLogger.Info("Library service gracefully stopped")
}

func run(ctx context.Context, cfg *config.AppConfig, appLogger *logger.Logger) error {
	// 3. Relational store
	db, err := mysql.Open(&cfg.Databases.MySQL)
	if err != nil {
		return fmt.Errorf("connect to MySQL: %w", err)
	}
	defer mysql.Close(db)
	if err := mysql.Migrate(db); err != nil {
		return err
	}

	// 4. Object storage
	minioClient, err := minio.NewClient(&cfg.Databases.MinIO)
	if err != nil {
		return fmt.Errorf("create MinIO client: %w", err)
	}
	files, err := minio.NewStore(ctx, minioClient, cfg.Databases.MinIO.Bucket)
	if err != nil {
		return err
	}

	// 5. Rate limiter, Redis only when shared counting is configured
	var rdb *redis.Client
	if cfg.Middleware.RateLimiter.Backend == "redis" {
		rdb, err = redisdb.NewClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		defer rdb.Close()
	}
	limiter, err := ratelimiter.New(cfg.Middleware.RateLimiter, rdb)
	if err != nil {
		return err
	}

	// 6. Models
	emd, err := embedding.NewEmdModel(ctx, cfg.Embedding, cfg.Middleware.CircuitBreaker)
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	defer func() {
		if err := embedding.Close(emd); err != nil {
			appLogger.WithErr("close_embedding", err).Warn("Failed to close embedding client")
		}
	}()
	embedder := embeddings.NewAdapter(emd, cfg.Embedding.Dimension)
	chat, err := llm.NewClient(ctx, cfg.LLM, cfg.Middleware.CircuitBreaker)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	defer func() {
		if err := llm.Close(chat); err != nil {
			appLogger.WithErr("close_llm", err).Warn("Failed to close LLM client")
		}
	}()

	// 7. Vector store, initialized once at startup
	vectors, closeVectors, err := vectorstore.New(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("create vector store: %w", err)
	}
	defer closeVectors()
	if err := vectors.Initialize(ctx); err != nil {
		return err
	}

	// 8. Pipelines and service
	indexer := pipeline.NewIndexingPipeline(splitters.NewSentenceSplitter(cfg.Library.ChunkSize), embedder, vectors, appLogger)
	var queryEmbedder interfaces.EmbeddingModel = embedder
	if cfg.Library.QueryCache > 0 {
		queryEmbedder, err = embeddings.NewCached(embedder, cache.Config{
			Capacity: cfg.Library.QueryCache,
			TTL:      config.Duration(cfg.Library.QueryCacheTTL, 10*time.Minute),
		})
		if err != nil {
			return err
		}
	}
	retriever := pipeline.NewRetrievalPipeline(queryEmbedder, vectors, cfg.Library.TopK, appLogger)
	qa := pipeline.NewQAPipeline(llms.NewAdapter(chat), appLogger)
	svc := service.New(appLogger, dal.NewBookDAL(db), files, vectors, indexer, retriever, qa, cfg.Library.StoragePrefix)

	// 9. HTTP
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(svc, appLogger, cfg.Server.MaxUploadBytes).WithChecks(
		api.Check{Name: "mysql", Fn: func(ctx context.Context) error { return mysql.HealthCheck(ctx, db) }},
		api.Check{Name: "object_storage", Fn: files.HealthCheck},
	)
	if rdb != nil {
		handler.WithChecks(api.Check{Name: "redis", Fn: func(ctx context.Context) error { return redisdb.HealthCheck(ctx, rdb) }})
	}
	if hc, ok := vectors.(interface{ HealthCheck(context.Context) error }); ok {
		handler.WithChecks(api.Check{Name: "vector_store", Fn: hc.HealthCheck})
	}
	router := api.SetupRouter(handler, cfg.Auth.JwtSecret, limiter, appLogger)
	srv := httpserver.NewServer(router,
		httpserver.WithAddress(cfg.Server.Address),
		httpserver.WithShutdownTimeout(config.Duration(cfg.Server.ShutdownTimeout, 0)),
		httpserver.WithLogger(appLogger),
	)
	return srv.Run(ctx)
}
