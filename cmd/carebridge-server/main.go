package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carebridge/carebridge/internal/assistant"
	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/domain/chat"
	"github.com/carebridge/carebridge/internal/domain/documents"
	"github.com/carebridge/carebridge/internal/domain/health"
	"github.com/carebridge/carebridge/internal/domain/users"
	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/internal/platform/blobstore"
	"github.com/carebridge/carebridge/internal/platform/db"
	"github.com/carebridge/carebridge/internal/platform/llm"
	"github.com/carebridge/carebridge/internal/platform/middleware"
	"github.com/carebridge/carebridge/internal/platform/ocr"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carebridge-server",
		Short: "CareBridge healthcare assistant API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(routeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, db.Migrations()))
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// routeCmd prints the routing decision for a query without calling the model.
func routeCmd() *cobra.Command {
	var role string
	var hasDocument bool

	cmd := &cobra.Command{
		Use:   "route <query>",
		Short: "Show which expert and prompt a query is routed to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			tier := assistant.ResolveTier(role)
			d := assistant.NewRouter(zerolog.Nop()).Route(query, tier, hasDocument)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "expert: %s\n", d.Category)
			fmt.Fprintf(out, "score:  %d\n", d.Score)
			fmt.Fprintf(out, "tier:   %s\n", d.Tier)
			fmt.Fprintf(out, "\n%s\n", d.Prompt)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "patient", "Account role of the asker")
	cmd.Flags().BoolVar(&hasDocument, "document", false, "Route as if a document is attached")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newBlobStore(cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.StorageBackend {
	case "memory":
		return blobstore.NewInMemoryBlobStore(), nil
	default:
		disk, err := blobstore.NewDiskBlobStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		logger := newLogger(nil)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: requests are not authenticated")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	applied, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	logger.Info().Int("applied", applied).Msg("migrations up to date")

	e, err := newServer(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	blobs, err := newBlobStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	// Model backend and assistant
	model := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	if !model.Configured() {
		logger.Warn().Msg("LLM_API_KEY not set: chat replies will use the fallback message")
	}
	asst := assistant.NewService(model,
		assistant.NewRouter(logger),
		assistant.NewGuard(cfg.Disclaimer, logger),
		assistant.Options{Model: cfg.LLMModel, VisionModel: cfg.LLMVisionModel, Timeout: cfg.LLMTimeout},
		logger)
	extractor := ocr.NewExtractor(model, cfg.LLMVisionModel, cfg.OCRTimeout, logger)

	// Domain services
	userSvc := users.NewService(users.NewRepoPG(pool), cfg.AdminEmails, logger)
	docSvc := documents.NewService(documents.NewRepoPG(pool), blobs, extractor, asst, documents.Options{
		MaxFileSize:      cfg.MaxFileSize(),
		AllowedMIMETypes: cfg.AllowedMIMETypes,
	}, logger)
	chatSvc := chat.NewService(chat.NewRepoPG(pool), docSvc, userSvc, asst, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevUserHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M", fmt.Sprintf("%dM", cfg.MaxFileSizeMB+1)))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	health.NewHandler(cfg.AppName, cfg.AppVersion, pool, model, logger,
		health.WithPoolStats(func() *db.PoolStats { return db.GetPoolStats(pool) }),
	).RegisterRoutes(apiV1)
	documents.NewHandler(docSvc).RegisterRoutes(apiV1)
	chat.NewHandler(chatSvc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "version": cfg.AppVersion})
	})

	return e, nil
}
