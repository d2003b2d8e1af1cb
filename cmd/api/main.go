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

	"github.com/Dan9191/loan-service/internal/cache"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/handler"
	"github.com/Dan9191/loan-service/internal/maintenance"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/maloquacious/semver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = semver.Version{Minor: 1, Build: semver.Commit()}

var (
	portFlag   string
	dbPathFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "loan-service",
		Short:        "Stores and lists loan amortization results",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.Flags().StringVar(&portFlag, "port", "", "listen port (overrides PORT)")
	rootCmd.Flags().StringVar(&dbPathFlag, "db-path", "", "sqlite database file (overrides DB_PATH)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		return err
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	ctx := context.Background()
	repo, err := repository.Open(ctx, repository.Options{
		Driver:      cfg.DBDriver,
		Path:        cfg.DBPath,
		DSN:         cfg.DBConn,
		BusyTimeout: cfg.DBBusyTimeout,
	})
	if err != nil {
		logger.Fatalf("Error opening database: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"driver":     repo.Driver(),
		"path":       cfg.DBPath,
		"production": cfg.IsProduction(),
	}).Info("Connected to database")
	if err := repo.InitSchema(ctx); err != nil {
		logger.WithError(err).WithField("error_kind", repository.KindOf(err)).Error("Error creating table")
	}

	// Initialize layers
	var opts []service.Option
	listCache := newCache(ctx, cfg, logger)
	if listCache != nil {
		opts = append(opts, service.WithCache(listCache, cfg.CacheTTL))
	}
	svc := service.NewService(repo, logger, opts...)
	h := handler.NewHandler(svc, logger)

	scheduler, err := maintenance.NewScheduler(cfg.CheckpointSchedule, repo, logger)
	if err != nil {
		logger.WithError(err).Error("Storage maintenance disabled")
	}
	if scheduler != nil {
		scheduler.Start()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("Shutting down")
	case runErr = <-serverErr:
		logger.Errorf("Server failed: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if listCache != nil {
		if err := listCache.Close(); err != nil {
			logger.Errorf("Error closing cache: %v", err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}
	logger.Info("Database closed")
	return runErr
}

// newCache builds the configured list cache, or nil when caching is off
func newCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) cache.Cache {
	switch cfg.Cache {
	case "memory":
		return cache.NewMemoryCache()
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := cache.NewRedisCache(pingCtx, cfg.RedisAddr)
		if err != nil {
			logger.WithError(err).Warn("Running without loan cache")
			return nil
		}
		return c
	}
	return nil
}
