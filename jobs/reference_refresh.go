package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/digibilling/digibilling/internal/jobs"
)

// ReferenceCache is the cache maintenance surface the refresh job drives.
type ReferenceCache interface {
	Bump(ctx context.Context) (int64, error)
}

// ReferenceRefreshJob drops stale supplier and product lists after a
// purchase is recorded. Lists are cached per caller, so they reload on each
// caller's next form open.
type ReferenceRefreshJob struct {
	Cache   ReferenceCache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReferenceRefreshJob wires the refresh handler.
func NewReferenceRefreshJob(cache ReferenceCache, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReferenceRefreshJob {
	return &ReferenceRefreshJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReferenceRefresh tasks.
func (j *ReferenceRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("reference refresh: cache not configured")
	}
	var payload ReferenceRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReferenceRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log().With(slog.String("purchase_id", payload.PurchaseID))
	version, err := j.Cache.Bump(ctx)
	if err != nil {
		resultErr = err
		logger.Error("invalidate reference cache", slog.Any("error", err))
		return resultErr
	}
	logger.Info("reference cache invalidated", slog.Int64("version", version))
	return resultErr
}

func (j *ReferenceRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReferenceRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReferenceRefresh))
	}
	return slog.Default().With(slog.String("job", TaskReferenceRefresh))
}
