package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/broker"
	natsbroker "github.com/tallyq/tally/internal/broker/nats"
	"github.com/tallyq/tally/internal/broker/rabbitmq"
	"github.com/tallyq/tally/internal/config"
	"github.com/tallyq/tally/internal/delay"
	"github.com/tallyq/tally/internal/domain"
	"github.com/tallyq/tally/internal/pool"
	"github.com/tallyq/tally/internal/repository/postgres"
	redisrepo "github.com/tallyq/tally/internal/repository/redis"
	"github.com/tallyq/tally/internal/task"
	"github.com/tallyq/tally/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Tally Worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize store and settlement lock
	jobStore := postgres.NewJobStore(dbPool)
	settlementLock := redisrepo.NewSettlementLock(redisClient)

	// Register tasks explicitly at startup
	registry := task.Default()
	logger.Info("Registered tasks", zap.Strings("tasks", registry.Names()))

	// Simulated processing latency, drawn uniformly per job
	delayStrategy := delay.Uniform{Min: cfg.Worker.DelayMin, Max: cfg.Worker.DelayMax}

	// Initialize use case
	processUC := usecase.NewProcessJobUsecase(jobStore, settlementLock, registry, delayStrategy, logger)

	// Create buffered job channel
	jobsChan := make(chan *domain.JobMessage, cfg.Worker.PoolSize*2)

	// Initialize broker consumer
	consumer, err := newConsumer(cfg, jobsChan, logger)
	if err != nil {
		logger.Fatal("Failed to initialize broker consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to broker", zap.String("driver", cfg.Broker.Driver))

	// Start worker pool
	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, jobsChan, processUC, logger)
	workerPool.Start(ctx)

	// Start broker consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("Broker consumer error", zap.Error(err))
			cancel()
		}
	}()

	// Start Prometheus metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	// Wait for workers to finish in-flight jobs
	workerPool.Stop()

	logger.Info("Worker stopped")
}

func newConsumer(cfg *config.Config, jobs chan<- *domain.JobMessage, logger *zap.Logger) (broker.Consumer, error) {
	switch cfg.Broker.Driver {
	case config.DriverNATS:
		nc, err := natsbroker.Connect(cfg.Broker.NATSURL)
		if err != nil {
			return nil, err
		}
		return natsbroker.NewConsumer(nc, jobs, logger), nil
	case config.DriverRabbitMQ:
		return rabbitmq.NewConsumer(cfg.Broker.RabbitMQURL, jobs, logger)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}
