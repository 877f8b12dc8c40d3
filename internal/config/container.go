package config

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ba6-ai-server/internal/domain"
	"ba6-ai-server/internal/infra/supabase"
	"ba6-ai-server/internal/infra/venice"
	"ba6-ai-server/internal/infra/vertex"
	"ba6-ai-server/internal/metrics"
	"ba6-ai-server/internal/repository"
	"ba6-ai-server/internal/service"
	"ba6-ai-server/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config          *AppConfig
	Logger          domain.Logger
	SupabaseClient  domain.SupabaseClient
	ProfileRepo     domain.ProfileRepository
	UsageStore      domain.UsageStore
	MetricsRegistry *prometheus.Registry
	Metrics         metrics.Recorder

	PlanResolver   *service.PlanResolver
	UsageLedger    *service.UsageLedger
	ModelCatalog   *service.ModelCatalog
	Gateway        *service.GenerationGateway
	AuthService    domain.AuthService
	BillingService *service.BillingService

	closers []func() error
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) *Container {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel(), config.AppEnv)

	c := &Container{
		Config: config,
		Logger: appLogger,
	}

	c.MetricsRegistry = metrics.NewRegistry()
	c.Metrics = metrics.NewRecorder(c.MetricsRegistry)

	// Supabase backs auth and the profile table
	c.SupabaseClient = supabase.NewSupabaseClient(config, appLogger)
	c.ProfileRepo = repository.NewSupabaseProfileRepository(c.SupabaseClient, appLogger)

	c.UsageStore = c.newUsageStore(ctx)

	upstream, catalogClient := c.newInference(ctx)

	rules := service.DefaultCatalogRules()
	if config.CatalogRulesPath != "" {
		loaded, err := service.LoadCatalogRules(config.CatalogRulesPath)
		if err != nil {
			appLogger.Error("Failed to load catalog rules, using defaults", err, "path", config.CatalogRulesPath)
		} else {
			rules = loaded
		}
	}

	catalogOpts := []service.ModelCatalogOption{
		service.WithCatalogTTL(config.CatalogTTL),
		service.WithCatalogMetrics(c.Metrics),
	}
	if config.RedisURL != "" {
		// Entries outlive the local TTL so a fresh instance can serve stale
		// data while it refreshes.
		cache, err := repository.NewRedisCatalogCache(config.RedisURL, 2*config.CatalogTTL, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, model catalog is per-instance", "error", err.Error())
		} else {
			catalogOpts = append(catalogOpts, service.WithSnapshotCache(cache))
			c.closers = append(c.closers, cache.Close)
		}
	}

	c.PlanResolver = service.NewPlanResolver(service.PriceTable{
		domain.PlanPro:  config.StripeProPriceID,
		domain.PlanTeam: config.StripeTeamPriceID,
	}, c.ProfileRepo, appLogger)
	c.UsageLedger = service.NewUsageLedger(c.UsageStore, appLogger)
	c.ModelCatalog = service.NewModelCatalog(catalogClient, rules, appLogger, catalogOpts...)

	gatewayConfig := service.DefaultGatewayConfig()
	gatewayConfig.DefaultImageModel = config.ImageModel
	gatewayConfig.DefaultTextModel = config.TextModel
	if config.InferenceProvider == "vertex" {
		gatewayConfig.DefaultTextModel = config.VertexModel
	}
	gatewayConfig.RefundOnUpstreamFailure = config.RefundOnUpstreamFailure

	c.Gateway = service.NewGenerationGateway(
		c.PlanResolver,
		c.UsageLedger,
		c.ModelCatalog,
		upstream,
		gatewayConfig,
		appLogger,
		c.Metrics,
	)
	c.AuthService = service.NewAuthService(c.SupabaseClient, config.GetJWTSecret(), appLogger)
	c.BillingService = service.NewBillingService(c.ProfileRepo, c.PlanResolver, appLogger)

	return c
}

func (c *Container) newUsageStore(ctx context.Context) domain.UsageStore {
	if c.Config.DatabaseURL == "" {
		c.Logger.Warn("DATABASE_URL not set, usage counters are kept in memory")
		return repository.NewMemoryUsageStore()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := repository.NewPostgresPool(connectCtx, c.Config.DatabaseURL, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to connect to PostgreSQL, usage counters are kept in memory", err)
		return repository.NewMemoryUsageStore()
	}
	c.closers = append(c.closers, func() error {
		pool.Close()
		return nil
	})
	return repository.NewPostgresUsageStore(pool, c.Logger)
}

// newInference returns the generation and catalog clients. Either may be nil
// when credentials are missing; the gateway and catalog report that per
// request.
func (c *Container) newInference(ctx context.Context) (domain.InferenceClient, domain.CatalogClient) {
	cfg := c.Config

	var veniceClient *venice.Client
	if cfg.VeniceAPIKey != "" {
		veniceClient = venice.NewClient(cfg.VeniceBaseURL, cfg.VeniceAPIKey, cfg.UpstreamTimeout, c.Logger)
	} else {
		c.Logger.Warn("VENICE_API_KEY not set, generation and model listing will fail")
	}

	var catalog domain.CatalogClient
	var images domain.InferenceClient
	if veniceClient != nil {
		catalog = veniceClient
		images = veniceClient
	}

	if cfg.InferenceProvider != "vertex" {
		return images, catalog
	}

	vertexClient, err := vertex.NewClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, images, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to create Vertex AI client", err, "project", cfg.GCPProjectID)
		return images, catalog
	}
	c.closers = append(c.closers, vertexClient.Close)
	c.Logger.Info("Using Vertex AI for chat", "project", cfg.GCPProjectID, "location", cfg.GCPLocation)
	return vertexClient, catalog
}

// Close releases database and cache connections
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Error("Failed to close dependency", err)
		}
	}
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}
