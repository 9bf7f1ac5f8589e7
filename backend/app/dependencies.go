package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/config"
	"github.com/healthscope/symptom-checker/backend/handlers"
	"github.com/healthscope/symptom-checker/backend/internal/observability"
	"github.com/healthscope/symptom-checker/backend/middleware"
	"github.com/healthscope/symptom-checker/backend/repositories"
	"github.com/healthscope/symptom-checker/backend/repositories/postgres"
	"github.com/healthscope/symptom-checker/backend/services"
	"github.com/healthscope/symptom-checker/backend/services/analysis"
	"github.com/healthscope/symptom-checker/backend/services/audit"
	"github.com/healthscope/symptom-checker/backend/services/embedding"
	"github.com/healthscope/symptom-checker/backend/services/ingest"
	"github.com/healthscope/symptom-checker/backend/services/providers"
	"github.com/healthscope/symptom-checker/backend/services/providers/gemini"
	"github.com/healthscope/symptom-checker/backend/services/providers/openai"
	"github.com/healthscope/symptom-checker/backend/services/vectorstore"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	History   repositories.HistoryRepository
	QueryLogs repositories.QueryLogRepository
	TxManager repositories.TransactionManager

	// Pipeline
	Embedder         *embedding.Service
	VectorStore      vectorstore.Store
	ProviderRegistry *providers.Registry
	ModelClient      *providers.FailoverClient
	AnalysisService  *analysis.Service
	IngestService    *ingest.Service

	// Auth and audit
	AuthService  *services.AuthService
	AuditService *audit.Service

	// HTTP layer
	AuthMiddleware  *middleware.AuthMiddleware
	AuthHandler     *handlers.AuthHandler
	SymptomHandler  *handlers.SymptomHandler
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler

	redisClient *redis.Client
}

// NewDependencies creates and wires up all application dependencies.
// Everything is constructed once here and injected; nothing initializes
// lazily at call time.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize the embedding backend with its optional Redis cache
	if err := deps.initEmbedding(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}

	// Initialize the vector store
	if err := deps.initVectorStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	// Initialize the model providers
	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	// Initialize the analysis and ingestion pipeline
	if err := deps.initPipeline(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	// Initialize auth and audit
	deps.initAuth(cfg)
	if err := deps.initAudit(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit service: %w", err)
	}

	// Initialize HTTP handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.History = repos.History
	d.QueryLogs = repos.QueryLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initEmbedding initializes the embedding service. Without a configured
// backend it runs on the deterministic hash fallback; without Redis the cache
// is simply disabled.
func (d *Dependencies) initEmbedding(cfg *config.Config) error {
	var cache embedding.Cache
	if cfg.Redis.Addr != "" {
		d.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = embedding.NewRedisCache(d.redisClient, cfg.Redis.TTL, d.Logger)
		d.Logger.Info("embedding cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	embedder, err := embedding.NewService(embedding.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	}, cache, d.Logger)
	if err != nil {
		return err
	}

	d.Embedder = embedder
	if embedder.FallbackActive() {
		d.Logger.Warn("no embedding backend configured, using hash fallback")
	}
	return nil
}

// initVectorStore selects Weaviate when configured, the in-memory store otherwise
func (d *Dependencies) initVectorStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Weaviate.Host == "" {
		d.VectorStore = vectorstore.NewMemoryStore()
		d.Logger.Warn("no vector database configured, using in-memory store")
		return nil
	}

	store, err := vectorstore.NewWeaviateStore(ctx, vectorstore.WeaviateConfig{
		Host:    cfg.Weaviate.Host,
		Scheme:  cfg.Weaviate.Scheme,
		APIKey:  cfg.Weaviate.APIKey,
		Class:   cfg.Weaviate.ClassName,
		Timeout: cfg.Weaviate.Timeout,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.VectorStore = store
	d.Logger.Info("vector store initialized",
		zap.String("host", cfg.Weaviate.Host),
		zap.String("class", cfg.Weaviate.ClassName))
	return nil
}

// initProviders initializes the provider registry with configured providers.
// Registration order is the failover preference order.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	if cfg.Gemini.APIKey != "" {
		adapter := gemini.NewGeminiAdapter(providers.ProviderConfig{
			APIKey:        cfg.Gemini.APIKey,
			BaseURL:       cfg.Gemini.BaseURL,
			Model:         cfg.Gemini.Model,
			FallbackModel: cfg.Gemini.FallbackModel,
			Timeout:       cfg.Gemini.Timeout,
			MaxRetries:    cfg.Gemini.MaxRetries,
			RetryDelay:    cfg.Gemini.RetryDelay,
		})
		if err := registry.RegisterProvider(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered Gemini provider", zap.String("model", cfg.Gemini.Model))
	}

	if cfg.OpenAI.APIKey != "" {
		adapter := openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
			RetryDelay: cfg.OpenAI.RetryDelay,
		})
		if err := registry.RegisterProvider(adapter); err != nil {
			return err
		}
		d.Logger.Info("registered OpenAI provider", zap.String("model", cfg.OpenAI.Model))
	}

	if registry.Count() == 0 {
		// every invocation will degrade to the safe default analysis
		d.Logger.Warn("no model providers configured")
	}

	d.ProviderRegistry = registry
	d.ModelClient = providers.NewFailoverClient(registry, d.Logger)
	return nil
}

// initPipeline wires the analysis and document ingestion services
func (d *Dependencies) initPipeline(cfg *config.Config) error {
	invoker := analysis.NewInvoker(d.ModelClient, d.Logger)
	d.AnalysisService = analysis.NewService(d.Embedder, d.VectorStore, invoker, d.Logger, d.Metrics)

	chunker, err := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return err
	}
	d.IngestService = ingest.NewService(chunker, d.Embedder, d.VectorStore, d.Logger, d.Metrics)

	d.Logger.Info("analysis pipeline initialized",
		zap.Int("chunk_size", cfg.Ingest.ChunkSize),
		zap.Int("chunk_overlap", cfg.Ingest.ChunkOverlap))
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.AuthService = services.NewAuthService(d.Users, d.TxManager, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.Logger)
	d.Logger.Info("auth service initialized")
}

func (d *Dependencies) initAudit() error {
	d.AuditService = audit.NewService(d.QueryLogs, d.Logger, audit.DefaultConfig())
	return d.AuditService.Start()
}

// initHandlers builds the HTTP handlers over the wired services
func (d *Dependencies) initHandlers() {
	d.AuthHandler = handlers.NewAuthHandler(d.AuthService, d.Users, d.Logger)
	d.SymptomHandler = handlers.NewSymptomHandler(d.AnalysisService, d.IngestService, d.History, d.AuditService, d.Logger)
	d.DocumentHandler = handlers.NewDocumentHandler(d.IngestService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.VectorStore, d.ModelClient, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Stop the audit workers first so pending query logs are flushed while the
	// database is still up
	if d.AuditService != nil {
		if err := d.AuditService.Stop(5 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
