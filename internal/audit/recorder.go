// Package audit is the append-only sink for security events. Writes are
// synchronous with the state transitions they describe: an impersonation
// start that is not yet audited is not started.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/metrics"
	"github.com/bookablehq/bookable-core/internal/models"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// ErrWriteFailed wraps audit sink failures. Fatal on impersonation start,
// operational on stop.
var ErrWriteFailed = errors.New("audit: write failed")

// Recorder writes impersonation events through a root handle; the events
// table spans tenants and is platform-scoped.
type Recorder struct {
	db *tenantdb.DB
}

// NewRecorder creates a recorder. The handle must be in root mode.
func NewRecorder(db *tenantdb.DB) (*Recorder, error) {
	if !db.IsRoot() {
		return nil, fmt.Errorf("audit: recorder requires a root handle")
	}
	return &Recorder{db: db}, nil
}

// RecordStart appends the "start" event for a new impersonation session.
// Failure here must abort the start; the caller propagates the error.
func (r *Recorder) RecordStart(ctx context.Context, ev *models.ImpersonationEvent) error {
	ev.Action = models.ImpersonationStart
	if err := r.db.Create(ctx, ev); err != nil {
		metrics.AuditWriteFailures.Inc()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// RecordStop appends the "stop" event and closes out the matching start row
// with its end time and duration, in one transaction.
func (r *Recorder) RecordStop(ctx context.Context, ev *models.ImpersonationEvent) error {
	ev.Action = models.ImpersonationStop

	err := r.db.Transaction(ctx, func(tx *tenantdb.DB) error {
		if err := tx.Create(ctx, ev); err != nil {
			return err
		}
		_, err := tx.Updates(ctx, &models.ImpersonationEvent{},
			tenantdb.Cond{"correlation_id": ev.CorrelationID, "action": models.ImpersonationStart},
			map[string]any{"ended_at": ev.EndedAt, "duration_seconds": ev.DurationSeconds},
		)
		return err
	})
	if err != nil {
		metrics.AuditWriteFailures.Inc()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Trail returns the impersonation events for a correlation id, oldest first.
func (r *Recorder) Trail(ctx context.Context, correlationID string) ([]models.ImpersonationEvent, error) {
	var events []models.ImpersonationEvent
	err := r.db.Find(ctx, &events,
		tenantdb.Cond{"correlation_id": correlationID},
		tenantdb.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load impersonation trail: %w", err)
	}
	return events, nil
}

// Recent returns the most recent impersonation events across all tenants.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.ImpersonationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.ImpersonationEvent
	err := r.db.Find(ctx, &events, nil,
		tenantdb.OrderBy("created_at DESC"),
		tenantdb.Limit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load impersonation events: %w", err)
	}
	return events, nil
}

// Log appends a generic audit entry through the caller's tenant-bound
// handle. Failures are logged and counted but never block the action they
// describe.
func Log(ctx context.Context, db *tenantdb.DB, entry *models.AuditLog) {
	entry.CreatedAt = time.Now().UTC()
	if err := db.Create(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		log.Error().Err(err).
			Str("action", entry.Action).
			Str("resource", entry.Resource).
			Msg("Failed to write audit log entry")
	}
}
