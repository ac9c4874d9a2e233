package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmaline/catalog-backend/internal/catalog"
	"github.com/pharmaline/catalog-backend/internal/categories"
	"github.com/pharmaline/catalog-backend/internal/cron"
	"github.com/pharmaline/catalog-backend/internal/images"
	"github.com/pharmaline/catalog-backend/pkg/config"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"github.com/pharmaline/catalog-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	imageManager, err := images.NewManager(cfg.Data.ImageRoot, cfg.Data.PublicBasePath, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create image manager", err)
		os.Exit(1)
	}

	medicineStore, err := catalog.NewFileStore(cfg.Data.MedicinesPath)
	if err != nil {
		logg.Error(context.Background(), "failed to open medicines collection", err)
		os.Exit(1)
	}

	categoryStore, err := categories.NewFileStore(cfg.Data.CategoriesPath)
	if err != nil {
		logg.Error(context.Background(), "failed to open categories collection", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.ServiceParams{
		Store:     categoryStore,
		Medicines: medicineStore,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Store:      medicineStore,
		Images:     imageManager,
		Categories: categoryService,
		Logger:     logg,
		Metrics:    metrics.NewCatalogMetrics(prometheus.DefaultRegisterer),
		Retention:  cfg.Data.PurgeRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	purgeJob, err := cron.NewPurgeJob(cron.PurgeJobParams{
		Logger:  logg,
		Catalog: catalogService,
		Metrics: jobMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purge job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(purgeJob),
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
