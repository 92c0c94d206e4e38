package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"orderflow/cmd"
	httpadapter "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/adapters/out/rabbitmq"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// .env is a local development convenience; in deployment the environment
	// is already populated.
	_ = godotenv.Load(".env")

	config := cmd.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", config.ServiceName)

	gormDB, err := gorm.Open(gorm_postgres.Open(config.PostgresDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = gormDB.AutoMigrate(&orderrepo.OrderDTO{}, &orderrepo.OrderItemDTO{}); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	amqpConn, err := amqp.Dial(config.AmqpURL)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}

	amqpChannel, err := amqpConn.Channel()
	if err != nil {
		log.Fatalf("Failed to open broker channel: %v", err)
	}

	if err = rabbitmq.DeclareTopology(amqpChannel, config.Broker); err != nil {
		log.Fatalf("Failed to declare broker topology: %v", err)
	}

	root := cmd.NewCompositionRoot(config, gormDB, amqpConn, amqpChannel, logger)

	listener, err := root.CreateOrderEventListener()
	if err != nil {
		log.Fatalf("Failed to create event listener: %v", err)
	}

	ctx := context.Background()
	if err = listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start event listener: %v", err)
	}

	healthJob := root.CreateBrokerHealthJob()
	if err = healthJob.Start(); err != nil {
		log.Fatalf("Failed to start broker health job: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.InfoContext(c.Request().Context(), "Request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	server := httpadapter.NewServer(
		root.CreateCreateOrderCommandHandler(),
		root.CreateUpdateOrderStatusCommandHandler(),
		root.CreateCancelOrderCommandHandler(),
		root.CreateGetOrderQueryHandler(),
		root.CreateGetCustomerOrdersQueryHandler(),
		healthJob,
		logger,
	)
	server.RegisterRoutes(e)

	go func() {
		if startErr := e.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort)); startErr != nil {
			logger.Info("HTTP server stopped", "error", startErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	// Stop order matters: consumers drain first so in-flight deliveries can
	// finish inside the grace window, then background jobs, then the broker
	// resources they both use, then the HTTP surface.
	if !listener.Stop() {
		logger.Warn("Event listener did not stop within the grace window")
	}
	healthJob.Stop()

	if err = amqpChannel.Close(); err != nil {
		logger.Error("Failed to close broker channel", "error", err)
	}
	if err = amqpConn.Close(); err != nil {
		logger.Error("Failed to close broker connection", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()

	if err = e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", "error", err)
	}

	logger.Info("Shutdown complete")
}
