package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tallyq/tally/internal/broker"
	natsbroker "github.com/tallyq/tally/internal/broker/nats"
	"github.com/tallyq/tally/internal/broker/rabbitmq"
	"github.com/tallyq/tally/internal/config"
	handler "github.com/tallyq/tally/internal/delivery/http"
	"github.com/tallyq/tally/internal/repository/postgres"
	"github.com/tallyq/tally/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Tally API Server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Initialize broker publisher
	pub, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize broker publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to broker", zap.String("driver", cfg.Broker.Driver))

	// Initialize store and use cases
	jobStore := postgres.NewJobStore(dbPool)
	submitUC := usecase.NewSubmitJobUsecase(jobStore, pub, logger)
	handles := usecase.NewHandleFactory(jobStore)

	// Initialize router
	router := handler.NewRouter(submitUC, handles, logger, cfg.Server.RateLimit)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (broker.Publisher, error) {
	switch cfg.Broker.Driver {
	case config.DriverNATS:
		nc, err := natsbroker.Connect(cfg.Broker.NATSURL)
		if err != nil {
			return nil, err
		}
		return natsbroker.NewPublisher(nc, logger), nil
	case config.DriverRabbitMQ:
		return rabbitmq.NewPublisher(cfg.Broker.RabbitMQURL, logger)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}
