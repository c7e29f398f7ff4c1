// Command worker consumes queued rename cascades and applies them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wanderplan/internal/bootstrap"
	"wanderplan/internal/config"
	"wanderplan/internal/jobs"
	"wanderplan/internal/middleware"
	"wanderplan/internal/repository"
	"wanderplan/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Stdout)

	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipQueue: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	cascade := service.NewNameCascade(
		repository.NewPlanRepository(rt.DB),
		repository.NewPublicationRepository(rt.DB),
	)

	middleware.Logger.Info("worker started")
	if err := jobs.Consume(ctx, cfg.RabbitMQURL, cfg.CascadeQueue, jobs.NewConsumer(cascade, repository.NewProfileRepository(rt.DB))); err != nil && ctx.Err() == nil {
		log.Fatalf("Worker stopped: %v", err)
	}
	middleware.Logger.Info("worker stopped")
}
