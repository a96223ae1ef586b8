package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediq/mediq/internal/config"
	"github.com/mediq/mediq/internal/domain/dashboard"
	"github.com/mediq/mediq/internal/domain/identity"
	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scheduling"
	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/internal/platform/crm"
	"github.com/mediq/mediq/internal/platform/db"
	"github.com/mediq/mediq/internal/platform/middleware"
	"github.com/mediq/mediq/internal/platform/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediq-server",
		Short: "Clinical record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.UseMemoryStore() {
				return fmt.Errorf("DATABASE_URL is not set; nothing to migrate")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.UseMemoryStore() {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-30s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, patients and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.UseMemoryStore() {
				return fmt.Errorf("DATABASE_URL is not set; the in-memory store is seeded automatically on serve")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			userSvc := identity.NewService(identity.NewPGRepo(pool))
			patientRepo := patient.NewPGRepo(pool)
			patientSvc := patient.NewService(patientRepo, nil, nil, logger)
			apptSvc := scheduling.NewService(scheduling.NewPGRepo(pool), patientRepo, nil, nil, logger)

			return seed.Load(ctx, userSvc, patientSvc, apptSvc, logger)
		},
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Dev-only fallback so login works out of the box; Validate rejects
		// an empty secret outside development.
		secret = []byte("mediq-dev-secret")
		logger.Warn().Msg("JWT_SECRET not set; using the development secret")
	}

	// Stores: PostgreSQL when DATABASE_URL is set, in-memory otherwise.
	ctx := context.Background()
	var (
		pool        *pgxpool.Pool
		userRepo    identity.Repository
		patientRepo patient.Repository
		apptRepo    scheduling.Repository
	)
	if cfg.UseMemoryStore() {
		userRepo = identity.NewMemRepo()
		patientRepo = patient.NewMemRepo()
		apptRepo = scheduling.NewMemRepo()
		logger.Info().Msg("using the in-memory store")
	} else {
		p, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
		userRepo = identity.NewPGRepo(p)
		patientRepo = patient.NewPGRepo(p)
		apptRepo = scheduling.NewPGRepo(p)
		logger.Info().Msg("connected to database")
	}

	// CRM integration
	crmClient := crm.NewClient(crm.Settings{
		APIKey:     cfg.GHLAPIKey,
		LocationID: cfg.GHLLocationID,
		BaseURL:    cfg.GHLBaseURL,
	}, logger)
	if crmClient.Configured() {
		logger.Info().Msg("crm integration enabled")
	}

	// Services
	activity := dashboard.NewActivityLog()
	userSvc := identity.NewService(userRepo)
	patientSvc := patient.NewService(patientRepo, patient.NewCRMNotifier(crmClient, logger), activity, logger)
	apptSvc := scheduling.NewService(apptRepo, patientRepo, crmClient, activity, logger)
	dashSvc := dashboard.NewService(patientRepo, apptRepo, activity)

	if cfg.UseMemoryStore() {
		if err := seed.Load(ctx, userSvc, patientSvc, apptSvc, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	if pool != nil {
		e.GET("/health", db.HealthHandler(pool))
	} else {
		e.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "store": "memory"})
		})
	}

	// Public routes (login) vs token-protected API.
	public := e.Group("/api/v1")
	apiV1 := e.Group("/api/v1", auth.JWTMiddleware(secret))

	identity.NewHandler(userSvc, secret, cfg.TokenTTL).RegisterRoutes(public, apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(apptSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashSvc).RegisterRoutes(apiV1)
	crm.NewHandler(crmClient).RegisterRoutes(apiV1)

	// Start with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
