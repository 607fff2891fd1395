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

	"github.com/k1maruuu/eyes/internal/config"
	"github.com/k1maruuu/eyes/internal/domain/checklist"
	"github.com/k1maruuu/eyes/internal/domain/files"
	"github.com/k1maruuu/eyes/internal/domain/identity"
	"github.com/k1maruuu/eyes/internal/domain/iol"
	"github.com/k1maruuu/eyes/internal/domain/labs"
	"github.com/k1maruuu/eyes/internal/domain/oplog"
	"github.com/k1maruuu/eyes/internal/domain/organization"
	"github.com/k1maruuu/eyes/internal/domain/patient"
	"github.com/k1maruuu/eyes/internal/platform/auth"
	"github.com/k1maruuu/eyes/internal/platform/db"
	"github.com/k1maruuu/eyes/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eyes-server",
		Short: "Pre-surgical ophthalmology workflow backend",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d migration(s)\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = fmt.Sprintf("applied %s", s.AppliedAt.Format(time.RFC3339))
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

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

			users := identity.NewRepoPG(pool)
			issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())
			svc := identity.NewService(users, issuer, cfg.MaxLoginFails)

			u := &identity.User{FullName: "Administrator", Email: email, Role: auth.RoleAdmin}
			if err := svc.Register(ctx, u, password); err != nil {
				return err
			}
			fmt.Printf("Created admin user %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email address")
	cmd.Flags().String("password", "", "Admin password")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

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

	e.GET("/health", db.HealthHandler(pool))

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL())
	txRunner := db.PoolRunner(pool)

	// Repositories
	orgRepo := organization.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	checklistRepo := checklist.NewRepoPG(pool)
	labsRepo := labs.NewRepoPG(pool)
	filesRepo := files.NewRepoPG(pool)
	iolRepo := iol.NewRepoPG(pool)
	userRepo := identity.NewRepoPG(pool)
	oplogRepo := oplog.NewRepoPG(pool)

	// Services. The precondition checker reads lab panels and file assets,
	// and the labs/files services verify item tags through the checklist
	// service, so construction order matters here.
	orgSvc := organization.NewService(orgRepo)
	patientSvc := patient.NewService(patientRepo)
	checker := checklist.NewChecker(filesRepo, labs.NewEvidenceSource(labsRepo))
	checklistSvc := checklist.NewService(checklistRepo, checklistRepo, checker, patientSvc, txRunner)
	labsSvc := labs.NewService(labsRepo, checklistSvc, patientSvc)
	filesSvc := files.NewService(filesRepo, checklistSvc, patientSvc, cfg.UploadDir)
	iolSvc := iol.NewService(iolRepo, patientSvc)
	identitySvc := identity.NewService(userRepo, issuer, cfg.MaxLoginFails)
	applier := oplog.NewApplier(oplogRepo, patientSvc, checklistSvc, txRunner, logger)

	public := e.Group("/api/v1")
	identity.NewHandler(identitySvc).RegisterPublicRoutes(public)

	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with dev auth, every request is admin")
		api.Use(auth.DevMiddleware())
	} else {
		api.Use(auth.Middleware(issuer))
	}
	api.Use(middleware.Audit(logger))

	identity.NewHandler(identitySvc).RegisterRoutes(api)
	organization.NewHandler(orgSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	checklist.NewHandler(checklistSvc).RegisterRoutes(api)
	labs.NewHandler(labsSvc).RegisterRoutes(api)
	files.NewHandler(filesSvc).RegisterRoutes(api)
	iol.NewHandler(iolSvc).RegisterRoutes(api)
	oplog.NewHandler(applier).RegisterRoutes(api)

	// Start server with graceful shutdown.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
