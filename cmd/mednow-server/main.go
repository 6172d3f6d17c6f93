package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mednow/mednow/internal/config"
	"github.com/mednow/mednow/internal/domain/delivery"
	"github.com/mednow/mednow/internal/domain/identity"
	"github.com/mednow/mednow/internal/domain/prescription"
	"github.com/mednow/mednow/internal/domain/reminder"
	"github.com/mednow/mednow/internal/platform/auth"
	"github.com/mednow/mednow/internal/platform/db"
	"github.com/mednow/mednow/internal/platform/events"
	"github.com/mednow/mednow/internal/platform/middleware"
	"github.com/mednow/mednow/internal/platform/push"
	"github.com/mednow/mednow/internal/platform/scheduler"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mednow-server",
		Short: "MedNow medication adherence API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

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

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
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

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Push sender
	var sender push.Sender
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init FCM")
		}
		sender = fcm
		logger.Info().Msg("push notifications via FCM")
	} else {
		sender = &push.LogSender{Logger: logger}
		logger.Warn().Msg("FIREBASE_CREDENTIALS_FILE not set, push notifications are logged only")
	}

	// Event broadcaster
	broadcaster := events.NewBroadcaster(logger)

	// Token issuer
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())

	// Repositories and services
	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo, issuer)

	prescriptionRepo := prescription.NewRepoPG(pool)
	prescriptionSvc := prescription.NewService(prescriptionRepo, broadcaster)

	deliveryRepo := delivery.NewRepoPG(pool)
	deliverySvc := delivery.NewService(deliveryRepo, prescriptionSvc, broadcaster)

	reminderRepo := reminder.NewRepoPG(pool)
	reminderSvc := reminder.NewService(reminderRepo, prescriptionSvc, broadcaster, sender, logger)

	// Reminder evaluation, on a fixed cadence and on demand
	evaluator := reminder.NewEvaluator(reminderRepo, sender, logger)
	runner := scheduler.NewRunner("reminder_evaluator", cfg.ReminderInterval(), loc, evaluator.EvaluateAndDispatch, logger)
	runCtx, stopRunner := context.WithCancel(ctx)
	defer stopRunner()
	runner.Start(runCtx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Registration, login and CPF lookup happen before a token exists.
	public := e.Group("/api/v1")
	apiV1 := e.Group("/api/v1", auth.Middleware(issuer))

	identity.NewHandler(identitySvc).RegisterRoutes(public, apiV1)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(apiV1)
	delivery.NewHandler(deliverySvc).RegisterRoutes(apiV1)
	reminder.NewHandler(reminderSvc, evaluator, loc).RegisterRoutes(apiV1)

	// Live event feeds
	eventsGroup := apiV1.Group("", auth.RequireRole(auth.RolePatient, auth.RolePhysician, auth.RolePharmacist))
	events.NewStreamHandler(broadcaster, cfg.SSEHeartbeat(), logger).RegisterRoutes(eventsGroup)
	events.NewWSHandler(broadcaster, logger).RegisterRoutes(eventsGroup)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopRunner()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
