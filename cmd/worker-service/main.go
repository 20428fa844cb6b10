package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/agent"
	"github.com/fluxolabs/fluxo-backend/internal/config"
	"github.com/fluxolabs/fluxo-backend/internal/pipeline"
	"github.com/fluxolabs/fluxo-backend/internal/services/auditfeed"
	"github.com/fluxolabs/fluxo-backend/internal/services/dexscreener"
	"github.com/fluxolabs/fluxo-backend/internal/services/insights"
	"github.com/fluxolabs/fluxo-backend/internal/services/mantle"
	"github.com/fluxolabs/fluxo-backend/internal/worker"
	"github.com/fluxolabs/fluxo-backend/internal/worker/storage"
	"github.com/fluxolabs/fluxo-backend/shared/logger"
	"github.com/fluxolabs/fluxo-backend/shared/postgresql"
	"github.com/fluxolabs/fluxo-backend/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, mantleClient, err := initAgents(ctx, cfg, dbClient, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize agents: %w", err)
	}

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Storage:       storage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		RabbitClient:  rabbitClient,
		Registry:      registry,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:    cfg.Worker.JobTimeout,
		QueueName:     cfg.RabbitMQ.Queue.Name,
	})

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	if mantleClient != nil {
		mantleClient.Close()
	}
	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initAgents builds the agent registry from config. The mantle client
// is returned separately so the caller can close it on shutdown.
func initAgents(ctx context.Context, cfg *config.Config, dbClient *postgresql.Client, logger *slog.Logger) (*agent.Registry, *mantle.Client, error) {
	artifacts := pipeline.NewStore(dbClient, cfg.Pipeline.ArtifactMaxAge)

	// Live onchain fallback needs an RPC endpoint. Without one the
	// onchain agent serves pipeline snapshots only.
	var mantleClient *mantle.Client
	var chain agent.BalanceFetcher
	var prices agent.PriceFetcher
	if cfg.Secrets.MantleRPCURL != "" {
		var err error
		mantleClient, err = mantle.Dial(ctx, cfg.Secrets.MantleRPCURL, 0, 0, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial mantle rpc: %w", err)
		}
		chain = mantleClient
		prices = dexscreener.NewClient(cfg.Secrets.DexScreenerBaseURL, logger)
	} else {
		logger.Warn("No mantle RPC URL configured, live onchain fallback disabled")
	}

	var insighter agent.Insighter
	if cfg.Agents.EnableInsights {
		engine, err := insights.NewEngine(cfg.Secrets.OpenAIAPIKey, cfg.Agents.InsightsModel, logger)
		if err != nil {
			logger.Warn("Insights engine unavailable",
				slog.Any("error", err),
			)
		} else {
			insighter = engine
		}
	}

	onchain := agent.NewOnchainAgent(agent.OnchainAgentConfig{
		Pipeline: artifacts,
		Chain:    chain,
		Prices:   prices,
		Insights: insighter,
		Network:  cfg.Agents.Network,
		Logger:   logger,
	})

	social := agent.NewSocialAgent(artifacts, logger)

	macro := agent.NewMacroAgent(artifacts, artifacts, auditfeed.NewService(), logger)

	return agent.NewRegistry(onchain, social, macro), mantleClient, nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
