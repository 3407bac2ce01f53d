package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/digibilling/digibilling/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReferenceRefresh invalidates and rewarms the cached supplier and product lists.
	TaskReferenceRefresh = "purchases:reference-refresh"
	// TaskIdempotencyCleanup prunes expired submission keys.
	TaskIdempotencyCleanup = "purchases:idempotency-cleanup"

	// IdempotencyCleanupCron runs the prune nightly.
	IdempotencyCleanupCron = "0 3 * * *"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReferenceRefreshPayload names the purchase that triggered the refresh.
type ReferenceRefreshPayload struct {
	PurchaseID string `json:"purchase_id"`
}

// NewReferenceRefreshTask builds a refresh task. Refreshes triggered within
// the same minute collapse into one.
func NewReferenceRefreshTask(purchaseID string) (*asynq.Task, error) {
	body, err := json.Marshal(ReferenceRefreshPayload{PurchaseID: purchaseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferenceRefresh, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(time.Minute),
	), nil
}

// IdempotencyCleanupPayload sets how long submission keys are kept.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
