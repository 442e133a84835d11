package repository

import (
	"context"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// MergeGroupRepository describes persistence operations on merge groups.
type MergeGroupRepository interface {
	// Create inserts a pending group and claims every member record in the
	// same transaction. The claim is conditional: if any member is already
	// replaced, nothing is written and ErrCandidateConflict is returned.
	Create(ctx context.Context, group *model.MergeGroup) error
	Get(ctx context.Context, id string) (*model.MergeGroup, error)
	SetDraft(ctx context.Context, id, draftID string) error
	SetCompleted(ctx context.Context, id, newOrderID string) error
	SetFailed(ctx context.Context, id, reason string) error
	// Reject marks a pending group rejected and releases its members.
	Reject(ctx context.Context, id string) error
	// Reopen returns a failed group to pending ahead of an explicit
	// re-attempt, keeping any recorded draft id.
	Reopen(ctx context.Context, id string) error
	ListPending(ctx context.Context, shop string) ([]model.MergeGroup, error)
	ListResolved(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error)
	CountByStatus(ctx context.Context, shop string, status model.GroupStatus) (int, error)
	// SelectPendingBatch picks up to limit pending groups for background
	// execution, skipping rows locked by concurrent workers.
	SelectPendingBatch(ctx context.Context, limit int) ([]model.MergeGroup, error)
}
