package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/config"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/handlers"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/logging"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/metrics"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/middleware"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/retry"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("jwks_issuers", len(cfg.Auth.JWKSEndpoints)))

	// Database
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, database.ConfigFrom(&cfg.Database))
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.SQLDB(), cfg.MigrationsPath, logger); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)
	auditor := audit.NewSecurityAuditor(logger)
	tx := database.NewTransactor(retry.DefaultConfig(), logger)

	// Repositories
	roleRepo := repositories.NewRoleRepository()
	userRepo := repositories.NewUserRepository()
	workspaceRepo := repositories.NewWorkspaceRepository()
	memberRepo := repositories.NewMemberRepository()
	projectRepo := repositories.NewProjectRepository()
	taskRepo := repositories.NewTaskRepository()

	// Services
	roleService := services.NewRoleService(roleRepo, tx, logger)
	accessService := services.NewAccessService(workspaceRepo, memberRepo, m, auditor, logger)
	memberService := services.NewMemberService(accessService, memberRepo, roleRepo, userRepo, workspaceRepo, tx, m, auditor, logger)
	workspaceService := services.NewWorkspaceService(accessService, memberService, workspaceRepo, memberRepo, userRepo, projectRepo, taskRepo, tx, auditor, logger)
	accountService := services.NewAccountService(userRepo, workspaceService, tx, auditor, logger)
	projectService := services.NewProjectService(accessService, projectRepo, taskRepo, tx, logger)
	taskService := services.NewTaskService(accessService, taskRepo, projectRepo, memberRepo, logger)

	if err := seedRoles(ctx, db, roleService, logger); err != nil {
		return err
	}

	// Auth
	revocations, closeRedis, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	var jwks auth.JWKSClientInterface
	if len(cfg.Auth.JWKSEndpoints) > 0 {
		client, err := auth.NewJWKSClient(ctx, cfg.Auth.JWKSEndpoints)
		if err != nil {
			return fmt.Errorf("failed to initialize JWKS client: %w", err)
		}
		defer client.Close()
		jwks = client
	}

	sessions := auth.NewSessionStore(cfg.Auth.SessionSecret, auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain), cfg.Auth.TokenTTL)
	authService := auth.NewAuthService(auth.NewChainValidator(issuer, jwks), sessions, revocations, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	scope := handlers.ScopeMiddleware(database.WithScopeContext(db, logger))

	// Routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, roleService, logger).RegisterRoutes(mux, scope)
	metrics.RegisterEndpoint(mux, registry)
	handlers.NewAuthHandler(accountService, issuer, sessions, revocations, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewUsersHandler(accountService, workspaceService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewRolesHandler(roleService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewWorkspacesHandler(workspaceService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewMembersHandler(memberService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewTasksHandler(taskService, logger).RegisterRoutes(mux, authMiddleware, scope)

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(m)(handler)
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = otelhttp.NewHandler(handler, "ekaya-teamwork")

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ekaya-teamwork",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSCertPath != "" && cfg.TLSKeyPath != ""))

		var err error
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// seedRoles installs the role catalog on an empty database.
func seedRoles(ctx context.Context, db *database.DB, roles services.RoleService, logger *zap.Logger) error {
	scopedCtx, cleanup, err := database.NewScopeProvider(db).WithScope(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for seeding: %w", err)
	}
	defer cleanup()

	seeded, err := roles.SeedRoles(scopedCtx)
	if err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if seeded {
		logger.Info("Seeded role catalog")
	}
	return nil
}

// newRevocationStore returns a Redis-backed store when Redis is configured
// and a no-op store otherwise.
func newRevocationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.RevocationStore, func(), error) {
	client, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		logger.Warn("Redis not configured; signed-out tokens stay valid until they expire")
		return auth.NewNoopRevocationStore(), func() {}, nil
	}
	return auth.NewRedisRevocationStore(client), func() { closeRedis(client, logger) }, nil
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("Failed to close Redis client", zap.Error(err))
	}
}
