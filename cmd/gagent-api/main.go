// Command gagent-api serves the GAgent financial advisor API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gagent-dev/gagent/internal/config"
	"github.com/gagent-dev/gagent/internal/httpapi"
	"github.com/gagent-dev/gagent/pkg/agent/llm"
	"github.com/gagent-dev/gagent/pkg/agent/loop"
	"github.com/gagent-dev/gagent/pkg/agent/session"
	"github.com/gagent-dev/gagent/pkg/agent/tools"
)

const defaultConfigPath = "config/gagent.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gagent-api",
		Short: "GAgent financial advisor API server",
		Long: `GAgent is an agentic financial advisor backend. It exposes chat
sessions over HTTP and streams agent progress (model output, tool
executions) to clients as server-sent events.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

type serveOptions struct {
	configPath string
	host       string
	port       int
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to configuration file")
	cmd.Flags().StringVar(&opts.host, "host", "", "Override the configured bind host")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Override the configured bind port")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := loadConfiguration(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting gagent api",
		zap.String("model", cfg.Agent.Model.Type()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
	)

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	model, err := llm.NewClientFromConfig(cfg.Agent.Model)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	registry, err := newToolRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	executor := tools.NewExecutor(registry, tools.DefaultTimeout, logger.Named("tools"))

	agentLoop := loop.New(model, executor, registry,
		loop.WithMaxIterations(cfg.Agent.MaxIterations),
		loop.WithLogger(logger.Named("loop")),
	)

	metrics := httpapi.NewMetrics()
	server := httpapi.NewServer(
		logger.Named("http"),
		store,
		agentLoop,
		cfg.Agent.Instruction,
		cfg.Server.KeepAliveInterval,
		httpapi.WithMetrics(metrics),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	httpServer := server.Build(cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func loadConfiguration(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		if err := config.SaveConfig(cfg, configPath); err == nil {
			fmt.Printf("Default configuration saved to %s\n", configPath)
		}
		return cfg, nil
	}
	return config.LoadConfig(configPath)
}

func newStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverSQLite:
		store, err := session.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, nil
	default:
		return session.NewMemoryStore(), nil
	}
}

func newToolRegistry(cfg *config.Config) (*tools.Registry, error) {
	marketData := tools.NewMarketDataClient(cfg.MarketData.BaseURL, &http.Client{
		Timeout: cfg.MarketData.Timeout,
	})
	return tools.NewRegistry(
		tools.NewStockDataTool(marketData),
		tools.NewCompareStocksTool(marketData),
		tools.NewFraudDetectionTool(tools.NewUserBaseline),
	)
}
