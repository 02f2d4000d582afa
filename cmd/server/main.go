// File: cmd/server/main.go
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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/iyunix/go-converse/internal/config"
	"github.com/iyunix/go-converse/internal/database"
	"github.com/iyunix/go-converse/internal/logging"
)

const shutdownTimeout = 15 * time.Second

var rootCmd = &cobra.Command{
	Use:   "converse-server",
	Short: "Conversational chat service: chats, history search and shareable links.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().String("port", "", "HTTP port, overrides SERVER_PORT")
	rootCmd.PersistentFlags().String("db-driver", "", `database driver ("sqlite" or "postgres"), overrides DB_DRIVER`)
	rootCmd.PersistentFlags().String("db-dsn", "", "database source name, overrides DB_DSN")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error, overrides LOG_LEVEL")

	for _, name := range []string{"port", "db-driver", "db-dsn", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, tokenCmd, diagnoseCmd)
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if viper.IsSet("port") {
		cfg.ServerPort = viper.GetString("port")
	}
	if viper.IsSet("db-driver") {
		cfg.DBDriver = viper.GetString("db-driver")
	}
	if viper.IsSet("db-dsn") {
		cfg.DBDSN = viper.GetString("db-dsn")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() logging.Logger {
	logger := logging.NewLogger("converse")
	if level := viper.GetString("log-level"); level != "" {
		if p, ok := logger.(*logging.ProductionLogger); ok {
			p.SetLevel(logging.ParseLevel(level))
		}
	}
	return logger
}

func openDatabase(cfg *config.Config, logger logging.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	logger.Info("database ready", "driver", cfg.DBDriver)
	return db, nil
}

func closeDatabase(db *gorm.DB, logger logging.Logger) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDatabase(db, logger)

	app, cleanup, err := InitializeApplication(ctx, cfg, logger, db)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// Writes wait on generation, which is bounded separately.
		WriteTimeout: cfg.GenerationTimeout*2 + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.ServerPort,
			"environment", cfg.Environment,
			"ai_provider", cfg.AIProvider,
			"sweep_mode", cfg.SweepMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
