package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/performance-management/internal"
	"github.com/frahmantamala/performance-management/internal/audit"
	auditpg "github.com/frahmantamala/performance-management/internal/audit/postgres"
	"github.com/frahmantamala/performance-management/internal/backendapi"
	"github.com/frahmantamala/performance-management/internal/core/events"
	"github.com/frahmantamala/performance-management/internal/devauth"
	"github.com/frahmantamala/performance-management/internal/guard"
	"github.com/frahmantamala/performance-management/internal/session"
	sessionredis "github.com/frahmantamala/performance-management/internal/session/redis"
	"github.com/frahmantamala/performance-management/internal/transport"
	"github.com/frahmantamala/performance-management/internal/transport/rest"
	"github.com/frahmantamala/performance-management/internal/transport/swagger"
	"github.com/frahmantamala/performance-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the session gateway HTTP server`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
		if err := deps.Redis.Close(); err != nil {
			deps.Logger.Error("redis close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	// a broken OpenAPI document should stop the server, not the UI
	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		lg.Warn("openapi spec validation failed, swagger UI may be broken", "error", err)
	}

	bus := events.NewEventBus(lg)

	// audit trail persists through gorm on top of the shared pgx pool
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: deps.DB.DB}), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open gorm connection: %w", err)
	}
	auditRepo := auditpg.NewRepository(gormDB)
	recorder := audit.NewRecorder(auditRepo, lg)
	recorder.Subscribe(bus)

	var exchanger session.CredentialExchanger
	if cfg.Auth.Provider == "dev" {
		lg.Warn("using dev credential provider, backend exchange is disabled")
		exchanger = devauth.NewProvider(cfg.Auth.DevUsers, lg)
	} else {
		exchanger = backendapi.NewClient(backendapi.Config{
			BaseURL:    cfg.Backend.BaseURL,
			LoginPath:  cfg.Backend.LoginPath,
			LogoutPath: cfg.Backend.LogoutPath,
			Timeout:    cfg.Backend.Timeout,
		}, lg)
	}

	issuer := session.NewJWTTokenIssuer(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	store := sessionredis.NewStore(deps.Redis, cfg.Redis.KeyPrefix+"session:")
	revocations := sessionredis.NewRevocationList(deps.Redis, cfg.Redis.KeyPrefix+"revoked:")

	svc := session.NewService(exchanger, issuer, store, revocations, bus, lg)

	rules := guard.DefaultRuleset()
	sessionHandler := session.NewHandler(svc, rules)
	guardHandler := guard.NewHandler(rules, transport.NewBaseHandler(lg))

	var proxy *rest.BackendProxy
	if cfg.Backend.BaseURL != "" {
		proxy, err = rest.NewBackendProxy(cfg.Backend.BaseURL, lg)
		if err != nil {
			return fmt.Errorf("failed to build backend proxy: %w", err)
		}
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.Redis,
		sessionHandler,
		guardHandler,
		proxy,
		rules,
		bus,
		cfg.Server.AllowedOrigins,
		lg,
	)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Redis:  redisClient,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
