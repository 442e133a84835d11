package repository

import (
	"context"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// EventRepository keeps the PII-free delivery audit log.
type EventRepository interface {
	// Save upserts the summary keyed by (shop, order id) so webhook retries
	// leave a single row.
	Save(ctx context.Context, summary model.EventSummary) error
	ListRecent(ctx context.Context, shop string, limit int) ([]model.EventSummary, error)
}
