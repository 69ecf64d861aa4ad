// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	adsclient "github.com/allisson/conversions/internal/ads/client"
	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/config"
	"github.com/allisson/conversions/internal/database"
	"github.com/allisson/conversions/internal/http"
	insightrepository "github.com/allisson/conversions/internal/insight/repository"
	insightusecase "github.com/allisson/conversions/internal/insight/usecase"
	"github.com/allisson/conversions/internal/metrics"
	outboxdomain "github.com/allisson/conversions/internal/outbox/domain"
	outboxrepository "github.com/allisson/conversions/internal/outbox/repository"
	outboxusecase "github.com/allisson/conversions/internal/outbox/usecase"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
	outcomehttp "github.com/allisson/conversions/internal/outcome/http"
	"github.com/allisson/conversions/internal/outcome/service"
	outcomeusecase "github.com/allisson/conversions/internal/outcome/usecase"
)

// DeliveryRepository is the full outbox contract implemented by both SQL
// repositories: ingestion enqueue, publisher claims and operator commands.
type DeliveryRepository interface {
	Enqueue(ctx context.Context, event *outcomedomain.OutcomeEvent) error
	FetchPending(ctx context.Context, limit int) ([]*outboxdomain.Delivery, error)
	MarkDelivered(ctx context.Context, eventID string, platform outcomedomain.Platform, response string) error
	MarkFailed(ctx context.Context, eventID string, platform outcomedomain.Platform, message string) error
	MoveToDeadLetter(ctx context.Context, maxRetries int) (int64, error)
	ReplayFailed(ctx context.Context, platform string) (int64, error)
	ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error)
	PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error)
	StatusSummary(ctx context.Context) ([]outboxdomain.StatusCount, error)
	CountsSince(ctx context.Context, since time.Time) (*outboxdomain.HealthCounts, error)
	RecentDeliveries(ctx context.Context, limit int) ([]*outboxdomain.Delivery, error)
}

// InsightRepository is the full read-side contract implemented by both SQL
// repositories: structure/insight upserts plus the health counter.
type InsightRepository interface {
	insightusecase.InsightRepository
	CountRowsSince(ctx context.Context, since time.Time) (int64, error)
}

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Observability
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	deliveryRepo DeliveryRepository
	insightRepo  InsightRepository

	// Platform ports
	registry *adsdomain.Registry

	// Use Cases
	outcomeUseCase   outcomeusecase.UseCase
	publisherUseCase outboxusecase.UseCase
	opsUseCase       *outboxusecase.OpsUseCase
	insightUseCase   insightusecase.UseCase

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	txManagerInit        sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	deliveryRepoInit     sync.Once
	insightRepoInit      sync.Once
	registryInit         sync.Once
	outcomeUseCaseInit   sync.Once
	publisherUseCaseInit sync.Once
	opsUseCaseInit       sync.Once
	insightUseCaseInit   sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry/Prometheus metrics provider, or
// nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op
// implementation is returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// DeliveryRepository returns the outbox delivery repository instance.
func (c *Container) DeliveryRepository() (DeliveryRepository, error) {
	c.deliveryRepoInit.Do(func() {
		repo, err := c.initDeliveryRepository()
		if err != nil {
			c.initErrors["deliveryRepo"] = err
			return
		}
		c.deliveryRepo = repo
	})
	if storedErr, exists := c.initErrors["deliveryRepo"]; exists {
		return nil, storedErr
	}
	return c.deliveryRepo, nil
}

// InsightRepository returns the read-side insight repository instance.
func (c *Container) InsightRepository() (InsightRepository, error) {
	c.insightRepoInit.Do(func() {
		repo, err := c.initInsightRepository()
		if err != nil {
			c.initErrors["insightRepo"] = err
			return
		}
		c.insightRepo = repo
	})
	if storedErr, exists := c.initErrors["insightRepo"]; exists {
		return nil, storedErr
	}
	return c.insightRepo, nil
}

// Registry returns the platform port registry, populated with one client per
// platform that has credentials configured.
func (c *Container) Registry() *adsdomain.Registry {
	c.registryInit.Do(func() {
		c.registry = c.initRegistry()
	})
	return c.registry
}

// OutcomeUseCase returns the outcome ingestion use case instance.
func (c *Container) OutcomeUseCase() (outcomeusecase.UseCase, error) {
	c.outcomeUseCaseInit.Do(func() {
		useCase, err := c.initOutcomeUseCase()
		if err != nil {
			c.initErrors["outcomeUseCase"] = err
			return
		}
		c.outcomeUseCase = useCase
	})
	if storedErr, exists := c.initErrors["outcomeUseCase"]; exists {
		return nil, storedErr
	}
	return c.outcomeUseCase, nil
}

// PublisherUseCase returns the outbox publisher use case instance.
func (c *Container) PublisherUseCase() (outboxusecase.UseCase, error) {
	c.publisherUseCaseInit.Do(func() {
		useCase, err := c.initPublisherUseCase()
		if err != nil {
			c.initErrors["publisherUseCase"] = err
			return
		}
		c.publisherUseCase = useCase
	})
	if storedErr, exists := c.initErrors["publisherUseCase"]; exists {
		return nil, storedErr
	}
	return c.publisherUseCase, nil
}

// OpsUseCase returns the operator-facing outbox use case instance.
func (c *Container) OpsUseCase() (*outboxusecase.OpsUseCase, error) {
	c.opsUseCaseInit.Do(func() {
		useCase, err := c.initOpsUseCase()
		if err != nil {
			c.initErrors["opsUseCase"] = err
			return
		}
		c.opsUseCase = useCase
	})
	if storedErr, exists := c.initErrors["opsUseCase"]; exists {
		return nil, storedErr
	}
	return c.opsUseCase, nil
}

// InsightUseCase returns the read-side sync use case instance.
func (c *Container) InsightUseCase() (insightusecase.UseCase, error) {
	c.insightUseCaseInit.Do(func() {
		useCase, err := c.initInsightUseCase()
		if err != nil {
			c.initErrors["insightUseCase"] = err
			return
		}
		c.insightUseCase = useCase
	})
	if storedErr, exists := c.initErrors["insightUseCase"]; exists {
		return nil, storedErr
	}
	return c.insightUseCase, nil
}

// HTTPServer returns the HTTP API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics
// are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server and provider if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initDeliveryRepository creates the outbox delivery repository instance.
func (c *Container) initDeliveryRepository() (DeliveryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for delivery repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return outboxrepository.NewMySQLDeliveryRepository(db), nil
	case "postgres":
		return outboxrepository.NewPostgreSQLDeliveryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initInsightRepository creates the read-side insight repository instance.
func (c *Container) initInsightRepository() (InsightRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for insight repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return insightrepository.NewMySQLInsightRepository(db), nil
	case "postgres":
		return insightrepository.NewPostgreSQLInsightRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRegistry creates the platform port registry from configured credentials.
// Platforms without credentials are simply absent; the publisher skips their
// deliveries and logs a warning instead of failing.
func (c *Container) initRegistry() *adsdomain.Registry {
	logger := c.Logger()
	registry := adsdomain.NewRegistry()

	clientConfig := adsclient.Config{
		Timeout:     c.config.PlatformSendTimeout,
		MaxAttempts: c.config.PlatformSendMaxAttempts,
		BaseDelay:   time.Second,
	}

	if c.config.MetaAccessToken != "" && c.config.MetaPixelID != "" {
		client := adsclient.NewMetaClient(clientConfig, c.config.MetaPixelID, c.config.MetaAccessToken, logger)
		registry.RegisterWriter(client)
		registry.RegisterReader(client)
	}

	if c.config.SnapAccessToken != "" && c.config.SnapPixelID != "" {
		client := adsclient.NewSnapClient(clientConfig, c.config.SnapPixelID, c.config.SnapAccessToken, logger)
		registry.RegisterWriter(client)
		registry.RegisterReader(client)
	}

	if c.config.TikTokAccessToken != "" && c.config.TikTokPixelID != "" {
		client := adsclient.NewTikTokClient(clientConfig, c.config.TikTokPixelID, c.config.TikTokAccessToken, logger)
		registry.RegisterWriter(client)
		registry.RegisterReader(client)
	}

	return registry
}

// initOutcomeUseCase creates the outcome ingestion use case with all its dependencies.
func (c *Container) initOutcomeUseCase() (outcomeusecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outcome use case: %w", err)
	}

	deliveryRepo, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for outcome use case: %w", err)
	}

	useCase := outcomeusecase.NewOutcomeUseCase(
		txManager,
		deliveryRepo,
		service.NewHasher(),
		service.NewEventIDGenerator(),
		c.config.DefaultCurrency,
	)

	return useCase, nil
}

// initPublisherUseCase creates the outbox publisher with all its dependencies.
func (c *Container) initPublisherUseCase() (outboxusecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for publisher use case: %w", err)
	}

	deliveryRepo, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for publisher use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for publisher use case: %w", err)
	}

	useCaseConfig := outboxusecase.Config{
		Interval:   c.config.OutboxPublishInterval,
		BatchSize:  c.config.OutboxBatchSize,
		MaxRetries: c.config.OutboxMaxRetries,
	}

	useCase := outboxusecase.NewPublisherUseCase(
		useCaseConfig,
		txManager,
		deliveryRepo,
		c.Registry(),
		businessMetrics,
		c.Logger(),
	)

	return useCase, nil
}

// initOpsUseCase creates the operator-facing outbox use case.
func (c *Container) initOpsUseCase() (*outboxusecase.OpsUseCase, error) {
	deliveryRepo, err := c.DeliveryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery repository for ops use case: %w", err)
	}

	insightRepo, err := c.InsightRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get insight repository for ops use case: %w", err)
	}

	return outboxusecase.NewOpsUseCase(deliveryRepo, insightRepo, c.activeAccounts()), nil
}

// initInsightUseCase creates the read-side sync use case.
func (c *Container) initInsightUseCase() (insightusecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for insight use case: %w", err)
	}

	insightRepo, err := c.InsightRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get insight repository for insight use case: %w", err)
	}

	accounts := map[outcomedomain.Platform]string{
		outcomedomain.PlatformMeta:   c.config.MetaAdAccountID,
		outcomedomain.PlatformSnap:   c.config.SnapAdAccountID,
		outcomedomain.PlatformTikTok: c.config.TikTokAdvertiserID,
	}

	return insightusecase.NewInsightUseCase(txManager, insightRepo, c.Registry(), accounts, c.Logger()), nil
}

// initHTTPServer creates the HTTP API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	outcomeUseCase, err := c.OutcomeUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome use case for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)

	handler := outcomehttp.NewOutcomeHandler(outcomeUseCase, logger)
	if provider != nil {
		server.SetupRouter(c.config, handler, provider.MeterProvider())
	} else {
		server.SetupRouter(c.config, handler, nil)
	}

	return server, nil
}

// activeAccounts lists the platforms with credentials configured, in canonical
// platform order, for the health report.
func (c *Container) activeAccounts() []string {
	var accounts []string
	if c.config.MetaAccessToken != "" && c.config.MetaPixelID != "" {
		accounts = append(accounts, outcomedomain.PlatformMeta.String())
	}
	if c.config.SnapAccessToken != "" && c.config.SnapPixelID != "" {
		accounts = append(accounts, outcomedomain.PlatformSnap.String())
	}
	if c.config.TikTokAccessToken != "" && c.config.TikTokPixelID != "" {
		accounts = append(accounts, outcomedomain.PlatformTikTok.String())
	}
	return accounts
}
