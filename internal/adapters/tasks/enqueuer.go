// internal/adapters/tasks/enqueuer.go
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/workers"
)

// Enqueuer hands background work to the asynq queue.
type Enqueuer struct {
	client *asynq.Client
	logger *slog.Logger
}

// Statically assert that *Enqueuer implements the TaskEnqueuer interface.
var _ ports.TaskEnqueuer = (*Enqueuer)(nil)

// NewEnqueuer creates a new task enqueuer
func NewEnqueuer(client *asynq.Client, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		client: client,
		logger: logger.With(slog.String("component", "enqueuer")),
	}
}

// EnqueueRestockAlert queues a sold-out notification.
func (e *Enqueuer) EnqueueRestockAlert(ctx context.Context, payload ports.RestockAlertPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal restock payload: %w", err)
	}

	task := asynq.NewTask(workers.TypeRestockAlert, b)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue restock alert: %w", err)
	}

	e.logger.InfoContext(ctx, "restock alert queued",
		slog.String("task_id", info.ID),
		slog.String("slot_code", payload.SlotCode),
		slog.String("item_name", payload.ItemName))
	return nil
}

// EnqueueReportRefresh queues a rebuild of the cached machine report. Bursts
// of mutations collapse onto one pending task per queue state via task ID
// uniqueness.
func (e *Enqueuer) EnqueueReportRefresh(ctx context.Context) error {
	task := asynq.NewTask(workers.TypeReportRefresh, nil)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue("low"),
		asynq.TaskID("report-refresh"),
		asynq.MaxRetry(2))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// A refresh is already pending; nothing to do.
			return nil
		}
		return fmt.Errorf("failed to enqueue report refresh: %w", err)
	}

	e.logger.DebugContext(ctx, "report refresh queued",
		slog.String("task_id", info.ID))
	return nil
}
