package test

import (
	"context"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/merge"
)

// HandlerFacadeStub implements the HTTP-facing facade surface with optional
// override functions per operation.
type HandlerFacadeStub struct {
	HandleOrderEventFn func(ctx context.Context, shop string, event model.OrderEvent) (*model.MergeGroup, error)
	PendingGroupsFn    func(ctx context.Context, shop string) ([]model.MergeGroup, map[string][]string, error)
	ResolvedGroupsFn   func(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error)
	ApproveGroupFn     func(ctx context.Context, id string) (*merge.Result, error)
	RejectGroupFn      func(ctx context.Context, id string) error
	GroupStatsFn       func(ctx context.Context, shop string) (map[model.GroupStatus]int, error)
	SettingsFn         func(ctx context.Context, shop string) (*model.MatchRules, error)
	UpdateSettingsFn   func(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error)
	RecentEventsFn     func(ctx context.Context, shop string, limit int) ([]model.EventSummary, error)
}

func (s *HandlerFacadeStub) HandleOrderEvent(ctx context.Context, shop string, event model.OrderEvent) (*model.MergeGroup, error) {
	if s.HandleOrderEventFn != nil {
		return s.HandleOrderEventFn(ctx, shop, event)
	}
	return nil, nil
}

func (s *HandlerFacadeStub) PendingGroups(ctx context.Context, shop string) ([]model.MergeGroup, map[string][]string, error) {
	if s.PendingGroupsFn != nil {
		return s.PendingGroupsFn(ctx, shop)
	}
	return nil, nil, nil
}

func (s *HandlerFacadeStub) ResolvedGroups(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error) {
	if s.ResolvedGroupsFn != nil {
		return s.ResolvedGroupsFn(ctx, shop, limit)
	}
	return nil, nil
}

func (s *HandlerFacadeStub) ApproveGroup(ctx context.Context, id string) (*merge.Result, error) {
	if s.ApproveGroupFn != nil {
		return s.ApproveGroupFn(ctx, id)
	}
	return &merge.Result{GroupID: id}, nil
}

func (s *HandlerFacadeStub) RejectGroup(ctx context.Context, id string) error {
	if s.RejectGroupFn != nil {
		return s.RejectGroupFn(ctx, id)
	}
	return nil
}

func (s *HandlerFacadeStub) GroupStats(ctx context.Context, shop string) (map[model.GroupStatus]int, error) {
	if s.GroupStatsFn != nil {
		return s.GroupStatsFn(ctx, shop)
	}
	return map[model.GroupStatus]int{}, nil
}

func (s *HandlerFacadeStub) Settings(ctx context.Context, shop string) (*model.MatchRules, error) {
	if s.SettingsFn != nil {
		return s.SettingsFn(ctx, shop)
	}
	rules := model.DefaultMatchRules(shop)
	return &rules, nil
}

func (s *HandlerFacadeStub) UpdateSettings(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error) {
	if s.UpdateSettingsFn != nil {
		return s.UpdateSettingsFn(ctx, rules)
	}
	return &rules, nil
}

func (s *HandlerFacadeStub) RecentEvents(ctx context.Context, shop string, limit int) ([]model.EventSummary, error) {
	if s.RecentEventsFn != nil {
		return s.RecentEventsFn(ctx, shop, limit)
	}
	return nil, nil
}
