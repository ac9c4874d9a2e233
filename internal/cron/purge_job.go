package cron

import (
	"context"

	"github.com/pharmaline/catalog-backend/internal/catalog"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"github.com/pharmaline/catalog-backend/pkg/metrics"
)

// PurgeJobParams configures the purge sweep.
type PurgeJobParams struct {
	Logger  *logger.Logger
	Catalog catalog.Service
	Metrics *metrics.JobMetrics
}

// NewPurgeJob constructs the job that permanently removes medicines whose
// retention window has elapsed.
func NewPurgeJob(params PurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog service required")
	}
	return &purgeJob{
		logg:    params.Logger,
		catalog: params.Catalog,
		metrics: params.Metrics,
	}, nil
}

type purgeJob struct {
	logg    *logger.Logger
	catalog catalog.Service
	metrics *metrics.JobMetrics
}

func (j *purgeJob) Name() string { return "purge-expired" }

func (j *purgeJob) Run(ctx context.Context) error {
	removed, err := j.catalog.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	j.metrics.AddPurged(len(removed))
	if len(removed) > 0 {
		j.logg.Info(j.logg.WithField(ctx, "removed", removed), "purge sweep removed medicines")
	}
	return nil
}
