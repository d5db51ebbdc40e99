// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/satyam-tomar/vending-machine-api/internal/adapters/db"
	"github.com/satyam-tomar/vending-machine-api/internal/adapters/memorystore"
	redis_a "github.com/satyam-tomar/vending-machine-api/internal/adapters/redis_adapter"
	"github.com/satyam-tomar/vending-machine-api/internal/adapters/tasks"
	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
	"github.com/satyam-tomar/vending-machine-api/internal/handlers"
	"github.com/satyam-tomar/vending-machine-api/internal/handlers/middleware"
	"github.com/satyam-tomar/vending-machine-api/internal/pkg/config"
	"github.com/satyam-tomar/vending-machine-api/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting vending machine inventory server",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	// Run database migrations outside production
	if cfg.Storage.Driver == "postgres" && cfg.App.Environment != "production" {
		if err := runMigrations(ctx, cfg, slogger); err != nil {
			slogger.Error("failed to run migrations", slog.String("error", err.Error()))
			// Don't exit in development, just warn
		}
	}

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database        ports.Database
	redisClient     *redis.Client
	cache           ports.CacheRepository
	asynqClient     *asynq.Client
	asynqInspector  *asynq.Inspector
	slotHandler     *handlers.SlotHandler
	itemHandler     *handlers.ItemHandler
	purchaseHandler *handlers.PurchaseHandler
	healthHandler   *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	// Select the inventory store backend
	var store ports.InventoryStore
	switch cfg.Storage.Driver {
	case "postgres":
		slogger.Info("connecting to database",
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Name),
		)

		database, err := db.NewDatabase(ctx, &db.Config{
			Host:               cfg.Database.Host,
			Port:               cfg.Database.Port,
			User:               cfg.Database.User,
			Password:           cfg.Database.Password,
			Database:           cfg.Database.Name,
			SSLMode:            cfg.Database.SSLMode,
			MaxConnections:     cfg.Database.MaxConnections,
			MinConnections:     cfg.Database.MinConnections,
			MaxConnLifetime:    cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
			ConnectTimeout:     cfg.Database.ConnectTimeout,
			EnableQueryLogging: cfg.Database.EnableQueryLogging,
		}, slogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.database = database
		store = db.NewStore(database, slogger)

	case "memory":
		slogger.Info("using in-memory inventory store")
		store = memorystore.New(slogger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// Initialize Redis client
	slogger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolTimeout:     cfg.Redis.PoolTimeout,
	})

	// Degrade to direct store reads when Redis is unreachable
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slogger.Warn("redis unavailable, running without report cache",
			slog.String("error", err.Error()))
		redisClient.Close()
	} else {
		deps.redisClient = redisClient
		deps.cache = redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)
	}

	// Initialize Asynq client
	var enqueuer ports.TaskEnqueuer
	if deps.redisClient != nil {
		asynqRedisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		}

		deps.asynqClient = asynq.NewClient(asynqRedisOpt)
		deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)
		enqueuer = tasks.NewEnqueuer(deps.asynqClient, slogger)
	}

	// Initialize services
	opts := services.Options{
		MaxSlots:      cfg.Machine.MaxSlots,
		Denominations: cfg.Machine.Denominations,
		LockDelay:     cfg.Machine.LockDelay,
	}

	slotService := services.NewSlotService(store, deps.cache, opts, slogger)
	inventoryService := services.NewInventoryService(store, deps.cache, enqueuer, opts, slogger)
	purchaseService := services.NewPurchaseService(store, deps.cache, enqueuer, opts, slogger)

	// Initialize handlers
	deps.slotHandler = handlers.NewSlotHandler(slotService, slogger)
	deps.itemHandler = handlers.NewItemHandler(inventoryService, slogger)
	deps.purchaseHandler = handlers.NewPurchaseHandler(purchaseService, slogger)
	deps.healthHandler = handlers.NewHealthHandler(
		deps.database,
		deps.redisClient,
		deps.asynqInspector,
		cfg,
		slogger,
	)

	slogger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, slogger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	// Apply middleware in reverse order (innermost first)
	var handler http.Handler = mux
	if cfg.App.Environment != "test" {
		handler = middleware.Logger(slogger)(handler)
		handler = middleware.Recovery(slogger)(handler)
		handler = middleware.RequestID(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	registerRoutes(mux, deps)

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slogger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	apiV1 := "/api/v1"

	// Health and readiness endpoints
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
	mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)

	// Slot administration
	mux.HandleFunc("POST "+apiV1+"/slots", deps.slotHandler.CreateSlot)
	mux.HandleFunc("GET "+apiV1+"/slots", deps.slotHandler.ListSlots)
	mux.HandleFunc("GET "+apiV1+"/slots/full-view", deps.slotHandler.FullView)
	mux.HandleFunc("DELETE "+apiV1+"/slots/{id}", deps.slotHandler.DeleteSlot)

	// Stocking
	mux.HandleFunc("POST "+apiV1+"/slots/{id}/items", deps.itemHandler.AddItem)
	mux.HandleFunc("POST "+apiV1+"/slots/{id}/items/bulk", deps.itemHandler.AddBulk)
	mux.HandleFunc("GET "+apiV1+"/slots/{id}/items", deps.itemHandler.ListItems)
	mux.HandleFunc("DELETE "+apiV1+"/slots/{id}/items/{itemId}", deps.itemHandler.RemoveItem)
	mux.HandleFunc("DELETE "+apiV1+"/slots/{id}/items", deps.itemHandler.RemoveBulk)
	mux.HandleFunc("GET "+apiV1+"/items/{id}", deps.itemHandler.GetItem)
	mux.HandleFunc("PATCH "+apiV1+"/items/{id}/price", deps.itemHandler.UpdatePrice)

	// Purchases
	mux.HandleFunc("POST "+apiV1+"/purchase", deps.purchaseHandler.Purchase)
	mux.HandleFunc("GET "+apiV1+"/purchase/change/{amount}", deps.purchaseHandler.ChangeBreakdown)
}

func runMigrations(ctx context.Context, cfg *config.Config, slogger *slog.Logger) error {
	slogger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, slogger, 3)
}
