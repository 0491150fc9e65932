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

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notionboard/internal/config"
	"notionboard/internal/llm"
	"notionboard/internal/logging"
	"notionboard/internal/notion"
	"notionboard/internal/server"
	"notionboard/internal/storage/sqlite"
	"notionboard/internal/util"
)

var version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "notionboard",
	Short:        "Sprint board backend on top of Notion databases",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		util.EnvOrDefault("config.yaml", "NOTIONBOARD_CONFIG", "CONFIG_PATH"), "Path to YAML config file")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

// setup loads configuration and builds the logger every command shares.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("notionboard starting", zap.String("version", version), zap.String("env", cfg.App.Env))
	if !cfg.NotionConfigured() {
		logger.Warn("no Notion integration key or OAuth credentials configured")
	}
	if !cfg.DeepSeekConfigured() {
		logger.Warn("DeepSeek API key missing; suggestions disabled")
	}

	store, err := sqlite.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	svc, err := llm.New(cfg.DeepSeek, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, server.Deps{
		Store:  store,
		Notion: notion.NewClient(cfg.Notion, nil),
		OAuth:  notion.NewOAuth(cfg.Notion, nil),
		LLM:    svc,
	}, logger)

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(15).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := store.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("purge expired sessions", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("purged expired sessions", zap.Int64("rows", n))
		}
	}); err != nil {
		return fmt.Errorf("schedule purge: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
