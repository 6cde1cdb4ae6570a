// Customer Core - Customer Management Platform
//
// This is the main entry point for the Customer Core application.
// Customer Core is a self-hosted customer management service providing:
//   - Token-based authentication (JWT access + rotating refresh tokens)
//   - Customer records with search and lifecycle management
//   - Role-based administration and audit logging
//
// For architecture details, see: docs/architecture/system-overview.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/nerrad567/customer-core/migrations"

	"github.com/nerrad567/customer-core/internal/api"
	"github.com/nerrad567/customer-core/internal/audit"
	"github.com/nerrad567/customer-core/internal/auth"
	"github.com/nerrad567/customer-core/internal/customer"
	"github.com/nerrad567/customer-core/internal/infrastructure/config"
	"github.com/nerrad567/customer-core/internal/infrastructure/database"
	"github.com/nerrad567/customer-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Customer Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the authentication service
	userRepo := auth.NewUserRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	authService, err := auth.NewService(userRepo, tokenRepo,
		&auth.LogNotifier{Logger: log.Logger}, log.Logger,
		auth.ServiceConfig{
			JWTSecret:  cfg.Security.JWT.Secret,
			AccessTTL:  cfg.AccessTokenTTL(),
			RefreshTTL: cfg.RefreshTokenTTL(),
			ResetTTL:   cfg.ResetTokenTTL(),
		})
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	// Seed the initial admin account on first boot
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Connect to Redis for login rate limiting (optional)
	var limiter *api.LoginLimiter
	if cfg.Redis.Enabled && cfg.Security.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			log.Info("closing Redis connection")
			if closeErr := redisClient.Close(); closeErr != nil {
				log.Error("error closing Redis", "error", closeErr)
			}
		}()

		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			// The limiter fails open, so a dead Redis degrades rather
			// than blocks startup.
			log.Warn("Redis unreachable, rate limiting degraded", "error", pingErr)
		} else {
			log.Info("Redis connected", "addr", cfg.Redis.Addr)
		}
		limiter = api.NewLoginLimiter(redisClient, cfg.Security.RateLimit)
	} else {
		log.Info("login rate limiting disabled")
	}

	// Audit trail: async recorder over the SQLite store
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, log.Logger)
	defer func() {
		log.Info("flushing audit recorder")
		recorder.Close()
	}()

	// Customer records
	customerRepo := customer.NewRepository(db.DB)

	// Start the HTTP API server
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Security:  cfg.Security,
		Logger:    log,
		Auth:      authService,
		Customers: customerRepo,
		Recorder:  recorder,
		AuditRepo: auditRepo,
		Limiter:   limiter,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Audit recorder
	// 3. Redis (if enabled)
	// 4. Database

	log.Info("Customer Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CUSTOMERCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CUSTOMERCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	// Redis health is intentionally not part of the aggregate check.
	// The login limiter fails open when Redis is down.

	return nil
}
