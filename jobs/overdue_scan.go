package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/crossbooks/crossbooks/internal/billing"
	jobmetrics "github.com/crossbooks/crossbooks/internal/jobs"
	"github.com/crossbooks/crossbooks/internal/shared"
)

// OverdueScanner moves invoices and bills past their due date to OVERDUE.
type OverdueScanner struct {
	store   billing.Store
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewOverdueScanner builds the scanner.
func NewOverdueScanner(store billing.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanner {
	return &OverdueScanner{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskOverdueScan tasks.
func (s *OverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	tracker := s.metrics.Track("overdue_scan")
	moved, err := s.store.MarkOverdue(ctx, asOf)
	if err != nil {
		s.logger.Error("overdue scan", slog.Any("error", err))
		return tracker.End(err)
	}
	s.metrics.AddOverdue(moved)
	if moved > 0 {
		s.logger.Info("overdue scan", slog.Int64("moved", moved), slog.Time("as_of", asOf))
	}
	return tracker.End(nil)
}

// IdempotencyCleaner prunes old idempotency keys.
type IdempotencyCleaner struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleaner builds the cleaner.
func NewIdempotencyCleaner(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleaner {
	return &IdempotencyCleaner{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	tracker := c.metrics.Track("idempotency_cleanup")
	if err := c.store.Cleanup(ctx, retention); err != nil {
		c.logger.Error("idempotency cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
