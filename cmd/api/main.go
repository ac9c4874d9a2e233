package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmaline/catalog-backend/api/routes"
	"github.com/pharmaline/catalog-backend/internal/catalog"
	"github.com/pharmaline/catalog-backend/internal/categories"
	"github.com/pharmaline/catalog-backend/internal/images"
	"github.com/pharmaline/catalog-backend/pkg/config"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"github.com/pharmaline/catalog-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, catalogService, categoryService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
