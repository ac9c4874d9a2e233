package cron

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaline/catalog-backend/internal/catalog"
	"github.com/pharmaline/catalog-backend/internal/images"
	"github.com/pharmaline/catalog-backend/pkg/logger"
	"github.com/pharmaline/catalog-backend/pkg/metrics"
)

type fakeCatalog struct {
	purgeFn func(ctx context.Context) ([]string, error)
}

func (f *fakeCatalog) Create(ctx context.Context, input catalog.CreateInput, uploads []images.Upload) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) Update(ctx context.Context, id string, input catalog.UpdateInput, uploads []images.Upload) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id string) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeCatalog) Restore(ctx context.Context, id string) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) PurgeExpired(ctx context.Context) ([]string, error) {
	if f.purgeFn != nil {
		return f.purgeFn(ctx)
	}
	return nil, nil
}

func (f *fakeCatalog) AddImages(ctx context.Context, id string, uploads []images.Upload) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) RemoveImage(ctx context.Context, id, url string) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) ReorderImages(ctx context.Context, id string, order []string) (*catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) List(ctx context.Context, includeDeleted bool) ([]catalog.Medicine, error) {
	return nil, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*catalog.Medicine, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRegistry(t *testing.T) {
	job, err := NewPurgeJob(PurgeJobParams{Logger: testLogger(), Catalog: &fakeCatalog{}})
	require.NoError(t, err)

	registry := NewRegistry(nil, job)
	assert.Len(t, registry.Jobs(), 1)

	registry.Register(job)
	registry.Register(nil)
	assert.Len(t, registry.Jobs(), 2)
}

func TestPurgeJobRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)

	fake := &fakeCatalog{
		purgeFn: func(ctx context.Context) ([]string, error) {
			return []string{"old-medicine"}, nil
		},
	}
	job, err := NewPurgeJob(PurgeJobParams{Logger: testLogger(), Catalog: fake, Metrics: jobMetrics})
	require.NoError(t, err)

	assert.Equal(t, "purge-expired", job.Name())
	require.NoError(t, job.Run(context.Background()))
}

func TestPurgeJobPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeCatalog{
		purgeFn: func(ctx context.Context) ([]string, error) { return nil, boom },
	}
	job, err := NewPurgeJob(PurgeJobParams{Logger: testLogger(), Catalog: fake})
	require.NoError(t, err)

	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	fake := &fakeCatalog{
		purgeFn: func(ctx context.Context) ([]string, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	job, err := NewPurgeJob(PurgeJobParams{Logger: testLogger(), Catalog: fake})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// First cycle runs immediately, then the loop parks on the ticker.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cron service did not stop")
	}
}
