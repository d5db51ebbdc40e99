// internal/workers/report_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
	"github.com/satyam-tomar/vending-machine-api/internal/core/services"
)

// ReportProcessor rebuilds the cached machine report after mutations.
type ReportProcessor struct {
	store  ports.InventoryStore
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(store ports.InventoryStore, cache ports.CacheRepository, logger *slog.Logger) *ReportProcessor {
	return &ReportProcessor{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("processor", "report")),
	}
}

// RefreshReport recomputes the full slot view and re-warms the cache.
func (p *ReportProcessor) RefreshReport(ctx context.Context, t *asynq.Task) error {
	views, err := p.store.FullView(ctx)
	if err != nil {
		return fmt.Errorf("failed to build full view: %w", err)
	}

	if err := p.cache.SetWithTTL(ctx, services.FullViewCacheKey, views, services.FullViewCacheTTL); err != nil {
		return fmt.Errorf("failed to warm report cache: %w", err)
	}

	p.logger.InfoContext(ctx, "report cache refreshed",
		slog.Int("slots", len(views)))
	return nil
}
