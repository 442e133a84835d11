package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
	"github.com/reno-apps/ordermerge/internal/matching"
	"github.com/reno-apps/ordermerge/internal/merge"
	"github.com/reno-apps/ordermerge/internal/usecase"
)

// MergeFacade is the single entry point the HTTP layer and the background
// worker use to drive duplicate detection and merge execution.
type MergeFacade struct {
	engine   *matching.Engine
	executor *merge.Executor
	groups   *usecase.GroupUseCase
	settings *usecase.SettingsUseCase
	batches  repository.MergeGroupRepository
	events   repository.EventRepository
	fp       *fingerprint.Generator
	logger   *slog.Logger
}

// NewMergeFacade constructs MergeFacade.
func NewMergeFacade(
	engine *matching.Engine,
	executor *merge.Executor,
	groups *usecase.GroupUseCase,
	settings *usecase.SettingsUseCase,
	batches repository.MergeGroupRepository,
	events repository.EventRepository,
	fp *fingerprint.Generator,
	logger *slog.Logger,
) *MergeFacade {
	return &MergeFacade{
		engine:   engine,
		executor: executor,
		groups:   groups,
		settings: settings,
		batches:  batches,
		events:   events,
		fp:       fp,
		logger:   logger,
	}
}

// HandleOrderEvent audits the delivery and runs duplicate detection. The
// audit record never blocks detection: a failed save is logged and dropped.
func (f *MergeFacade) HandleOrderEvent(ctx context.Context, shop string, event model.OrderEvent) (*model.MergeGroup, error) {
	summary := model.EventSummary{
		Shop:               shop,
		OrderID:            event.ID,
		Name:               event.Name,
		OrderCreatedAt:     event.CreatedAt,
		AddressFingerprint: f.fp.Address(shop, event.ShippingAddress),
		LineItemCount:      len(event.LineItems),
		TotalPrice:         event.TotalPrice,
		HasEmail:           event.Email != "",
		ReceivedAt:         time.Now(),
	}
	if err := f.events.Save(ctx, summary); err != nil {
		f.logger.Error("saving event audit",
			slog.String("shop", shop), slog.String("order", event.ID),
			slog.String("error", err.Error()))
	}
	return f.engine.Process(ctx, shop, event)
}

// PendingGroups lists groups awaiting review with resolved member names.
func (f *MergeFacade) PendingGroups(ctx context.Context, shop string) ([]model.MergeGroup, map[string][]string, error) {
	return f.groups.ListPending(ctx, shop)
}

// ResolvedGroups lists recently resolved groups.
func (f *MergeFacade) ResolvedGroups(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error) {
	return f.groups.ListResolved(ctx, shop, limit)
}

// ApproveGroup runs the merge for an operator-approved group.
func (f *MergeFacade) ApproveGroup(ctx context.Context, id string) (*merge.Result, error) {
	return f.groups.Approve(ctx, id)
}

// RejectGroup dismisses a pending group.
func (f *MergeFacade) RejectGroup(ctx context.Context, id string) error {
	return f.groups.Reject(ctx, id)
}

// Settings returns the shop's matching rules.
func (f *MergeFacade) Settings(ctx context.Context, shop string) (*model.MatchRules, error) {
	return f.settings.Get(ctx, shop)
}

// UpdateSettings validates and persists new matching rules.
func (f *MergeFacade) UpdateSettings(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error) {
	return f.settings.Update(ctx, rules)
}

// RecentEvents returns the shop's delivery audit log.
func (f *MergeFacade) RecentEvents(ctx context.Context, shop string, limit int) ([]model.EventSummary, error) {
	return f.events.ListRecent(ctx, shop, limit)
}

// GroupStats reports group counts per status.
func (f *MergeFacade) GroupStats(ctx context.Context, shop string) (map[model.GroupStatus]int, error) {
	return f.groups.Stats(ctx, shop)
}

// GroupsForProcessing picks pending groups for the background worker.
func (f *MergeFacade) GroupsForProcessing(ctx context.Context, limit int) ([]model.MergeGroup, error) {
	return f.batches.SelectPendingBatch(ctx, limit)
}

// AutoMergeEnabled reports whether the shop opted into unattended merging.
func (f *MergeFacade) AutoMergeEnabled(ctx context.Context, shop string) (bool, error) {
	rules, err := f.settings.Get(ctx, shop)
	if err != nil {
		return false, err
	}
	return rules.AutoMerge, nil
}

// ExecuteGroup runs an unattended merge for the background worker.
func (f *MergeFacade) ExecuteGroup(ctx context.Context, group model.MergeGroup) (*merge.Result, error) {
	return f.executor.Execute(ctx, group, false)
}
