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

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/internal/cache"
	"github.com/diewo77/go-faktur/internal/config"
	"github.com/diewo77/go-faktur/internal/db"
	"github.com/diewo77/go-faktur/internal/logger"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "faktur",
	Short: "Invoice and stock ledger service",
	// Without a subcommand the server starts.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// boot loads .env and configuration, installs the logger and connects to the database.
func boot() (*config.Config, *gorm.DB, error) {
	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.App.IsProduction(), os.Stdout)

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, conn, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := boot()
		if err != nil {
			return err
		}

		// Run migrations on startup if enabled
		if err := db.Migrate(conn, cfg.Database, cfg.App.Migrations); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if cfg.App.Seed {
			if err := db.Seed(conn); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}

		// Bearer tokens must name a user that still exists
		auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
			var count int64
			conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
			return count > 0
		})

		invoiceCache := cache.New(cfg.Cache)
		switch invoiceCache.(type) {
		case *cache.Redis:
			logger.L.Info("invoice cache enabled", "driver", "redis", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
		case *cache.Memory:
			logger.L.Info("invoice cache enabled", "driver", "memory", "ttl", cfg.Cache.TTL)
		}

		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      NewApp(conn, cfg, invoiceCache),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.L.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return fmt.Errorf("server: %w", err)
		case <-quit:
			logger.L.Info("shutdown signal received")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.L.Error("error during shutdown", "error", err)
		}
		logger.L.Info("server stopped gracefully")
		return nil
	},
}
