package repository

import (
	"context"
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// OrderIndexRepository describes persistence operations on indexed orders.
type OrderIndexRepository interface {
	// Upsert creates or updates the record keyed by (shop, id). Duplicate
	// deliveries of the same event must not create duplicate records.
	Upsert(ctx context.Context, record model.OrderRecord) error
	// FindCandidates returns all records sharing the address fingerprint
	// created at or after since, ascending by creation time. Records of every
	// status are returned; status filtering belongs to the matching engine.
	FindCandidates(ctx context.Context, shop, addressFingerprint string, since time.Time) ([]model.OrderRecord, error)
	// ResetToOpen releases records owned by the given group back to open.
	ResetToOpen(ctx context.Context, shop string, ids []string, groupID string) error
	// NamesByIDs returns display names in the same order as ids, falling back
	// to the id itself when a record is missing.
	NamesByIDs(ctx context.Context, shop string, ids []string) ([]string, error)
}
