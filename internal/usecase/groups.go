package usecase

import (
	"context"
	"fmt"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/merge"
)

// GroupUseCase encapsulates the review workflow over detected merge groups.
type GroupUseCase struct {
	groups   repository.MergeGroupRepository
	orders   repository.OrderIndexRepository
	executor *merge.Executor
}

// NewGroupUseCase constructs GroupUseCase.
func NewGroupUseCase(
	groups repository.MergeGroupRepository,
	orders repository.OrderIndexRepository,
	executor *merge.Executor,
) *GroupUseCase {
	return &GroupUseCase{groups: groups, orders: orders, executor: executor}
}

// ListPending returns the shop's groups awaiting review, with member display
// names resolved for presentation.
func (u *GroupUseCase) ListPending(ctx context.Context, shop string) ([]model.MergeGroup, map[string][]string, error) {
	groups, err := u.groups.ListPending(ctx, shop)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[string][]string, len(groups))
	for _, g := range groups {
		resolved, err := u.orders.NamesByIDs(ctx, shop, g.OriginalIDs)
		if err != nil {
			return nil, nil, err
		}
		names[g.ID] = resolved
	}
	return groups, names, nil
}

// ListResolved returns the shop's recently resolved groups.
func (u *GroupUseCase) ListResolved(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error) {
	return u.groups.ListResolved(ctx, shop, limit)
}

// Approve runs the merge for a reviewed group. A previously failed group is
// reopened first so the pipeline restarts; an already-created draft is
// reused rather than duplicated.
func (u *GroupUseCase) Approve(ctx context.Context, id string) (*merge.Result, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: group id is required", domainErrors.ErrValidation)
	}
	group, err := u.groups.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch group.Status {
	case model.GroupStatusPending, model.GroupStatusDraftCreated:
	case model.GroupStatusFailed:
		if err := u.groups.Reopen(ctx, id); err != nil {
			return nil, err
		}
		group.Status = model.GroupStatusPending
	default:
		return nil, fmt.Errorf("%w: group is %s", domainErrors.ErrIllegalTransition, group.Status)
	}

	return u.executor.Execute(ctx, *group, true)
}

// Reject dismisses a pending group and releases its members back into the
// candidate pool.
func (u *GroupUseCase) Reject(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: group id is required", domainErrors.ErrValidation)
	}
	return u.groups.Reject(ctx, id)
}

// Stats reports group counts per lifecycle status for the shop.
func (u *GroupUseCase) Stats(ctx context.Context, shop string) (map[model.GroupStatus]int, error) {
	statuses := []model.GroupStatus{
		model.GroupStatusPending,
		model.GroupStatusDraftCreated,
		model.GroupStatusCompleted,
		model.GroupStatusFailed,
		model.GroupStatusRejected,
	}
	stats := make(map[model.GroupStatus]int, len(statuses))
	for _, status := range statuses {
		count, err := u.groups.CountByStatus(ctx, shop, status)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, nil
}
