package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/app"
	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/logger"
	"github.com/segyhp/credit-engine/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run the overdue sweep once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)

	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("The scheduler needs DATABASE_DRIVER=%s; the memory store is swept by the server itself", config.DriverPostgres)
	}

	engine, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer engine.Close()

	if *once {
		scheduler.RunSweep(context.Background(), engine.Accounts, log)
		return
	}

	c, err := scheduler.New(engine.Accounts, cfg, log)
	if err != nil {
		log.Fatalf("Failed to schedule overdue sweep: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.WithFields(logrus.Fields{
		"overdue_cron": cfg.Scheduler.OverdueCron,
		"timezone":     cfg.Scheduler.Timezone,
	}).Info("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-c.Stop().Done()
	log.Info("scheduler stopped")
}
