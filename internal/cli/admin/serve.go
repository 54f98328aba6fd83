// Package admin holds the daemon commands: serving the API and running
// one-shot ingestion.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reglens/reglens/internal/api/handlers"
	"github.com/reglens/reglens/internal/chunker"
	"github.com/reglens/reglens/internal/config"
	"github.com/reglens/reglens/internal/database"
	"github.com/reglens/reglens/internal/domain"
	"github.com/reglens/reglens/internal/embedding"
	"github.com/reglens/reglens/internal/jobs"
	"github.com/reglens/reglens/internal/logging"
	"github.com/reglens/reglens/internal/repository"
	"github.com/reglens/reglens/internal/server"
	"github.com/reglens/reglens/internal/service"
	"github.com/reglens/reglens/internal/source"
	"github.com/reglens/reglens/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the reglens search API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

// deps is the wired object graph shared by the daemon commands.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	store    *repository.Store
	provider service.EmbeddingProvider
	reducer  service.Reducer
	pipeline *service.IngestionPipeline
}

func (d *deps) close() {
	d.pool.Close()
	_ = d.logger.Sync()
}

// buildDeps loads config, connects to the database, and wires the
// ingestion pipeline. The HTTP layer is assembled on top by runServe.
func buildDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Debug)

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database")

	store := repository.NewStore(pool, cfg.StoreDimensions)

	var provider service.EmbeddingProvider
	if cfg.EmbeddingsEnabled && cfg.HasOpenAI() {
		provider = embedding.NewClient(embedding.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      openai.EmbeddingModel(cfg.EmbeddingModel),
			Dimensions: cfg.NativeDimensions,
		}, logger)
	}

	var reducer service.Reducer
	if cfg.StoreDimensions < cfg.NativeDimensions {
		reducer = embedding.NewDimensionAdapter(cfg.StoreDimensions)
	}

	var src service.DocumentSource
	if cfg.HasS3() {
		s3src, err := source.NewS3Source(ctx, source.S3SourceConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		src = s3src
		logger.Info("corpus source ready",
			zap.String("bucket", cfg.S3Bucket), zap.String("prefix", cfg.S3Prefix))
	} else {
		src = source.NewMemorySource(nil, 0)
		logger.Warn("no S3 corpus configured; ingestion source is empty")
	}

	pipeline := service.NewIngestionPipelineWithTx(
		src, store, repository.NewTxRunner(pool, cfg.StoreDimensions),
		chunker.New(), provider, reducer, cfg.MaxConcurrency, logger)

	return &deps{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		store:    store,
		provider: provider,
		reducer:  reducer,
		pipeline: pipeline,
	}, nil
}

func newOrchestrator(d *deps) *service.QueryOrchestrator {
	engine := service.NewRetrievalEngine(d.store, service.RetrievalConfig{
		SimilarityThreshold: d.cfg.SimilarityThreshold,
		SeedVectorWeight:    d.cfg.HybridVectorWeight,
		SeedKeywordWeight:   d.cfg.HybridKeywordWeight,
	}, d.logger)

	return service.NewQueryOrchestrator(engine, d.provider, d.reducer, service.OrchestratorConfig{
		DefaultStrategy:     domain.SearchStrategy(d.cfg.DefaultStrategy),
		SimilarityThreshold: d.cfg.SimilarityThreshold,
		ContextWindow:       d.cfg.ContextWindow,
		VectorWeight:        d.cfg.HybridVectorWeight,
		KeywordWeight:       d.cfg.HybridKeywordWeight,
		CacheMaxSize:        d.cfg.CacheMaxSize,
	}, d.logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err == nil {
			defer shutdownTelemetry()
		}
	}

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" && portFlag != "8080" {
		d.cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(d.cfg.DatabaseURL, d.logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	orchestrator := newOrchestrator(d)
	manager := jobs.NewManager(configuredRunner{
		pipeline:   d.pipeline,
		processing: d.cfg.ProcessingBatchSize,
		storage:    d.cfg.StorageBatchSize,
	}, d.logger)
	defer manager.Shutdown()

	router := server.NewRouter(server.RouterConfig{
		APIKey:          d.cfg.APIKey,
		Logger:          d.logger,
		SearchHandler:   handlers.NewSearchHandler(orchestrator),
		IngestHandler:   handlers.NewIngestHandler(manager),
		DocumentHandler: handlers.NewDocumentHandler(d.store),
	})

	srv := &http.Server{
		Addr:    ":" + d.cfg.Port,
		Handler: router,
	}

	go func() {
		d.logger.Info("starting server", zap.String("port", d.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	d.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	d.logger.Info("server exited")
	return nil
}

// configuredRunner fills in the configured batch sizes for API-started
// ingestion runs that leave them unset.
type configuredRunner struct {
	pipeline   *service.IngestionPipeline
	processing int
	storage    int
}

func (r configuredRunner) Run(ctx context.Context, opts service.IngestionOptions) (*service.IngestionResult, error) {
	if opts.ProcessingBatchSize <= 0 {
		opts.ProcessingBatchSize = r.processing
	}
	if opts.StorageBatchSize <= 0 {
		opts.StorageBatchSize = r.storage
	}
	return r.pipeline.Run(ctx, opts)
}

func runMigrations(databaseURL string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	switch {
	case err == migrate.ErrNilVersion:
		logger.Info("migrations: database is up to date (no migrations applied)")
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	default:
		logger.Info("migrations applied", zap.Uint("version", version))
	}

	return nil
}
