package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/app"
	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/handler"
	"github.com/segyhp/credit-engine/internal/logger"
	"github.com/segyhp/credit-engine/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)

	engine, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer engine.Close()

	// A nil *sqlx.DB must not become a non-nil Pinger
	var db handler.Pinger
	if engine.DB != nil {
		db = engine.DB
	}

	router := handler.NewRouter(handler.Handlers{
		Purchases: handler.NewPurchaseHandler(engine.Purchases),
		Payments:  handler.NewPaymentHandler(engine.Payments),
		Customers: handler.NewCustomerHandler(engine.Customers),
		Accounts:  handler.NewAccountHandler(engine.Accounts),
		Health:    handler.NewHealthHandler(db, engine.Redis, cfg.GetHealthTimeout()),
	}, engine.Metrics, log)

	// The memory store lives in this process, so nobody else can sweep it
	var sweeper *cron.Cron
	if cfg.Database.Driver == config.DriverMemory {
		sweeper, err = scheduler.New(engine.Accounts, cfg, log)
		if err != nil {
			log.Fatalf("Failed to schedule overdue sweep: %v", err)
		}
		sweeper.Start()
	}

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return
	}

	log.Info("server exited")
}
