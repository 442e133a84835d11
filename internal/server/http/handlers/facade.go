package handlers

import (
	"context"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/merge"
)

// WebhookFacade handles inbound order events.
type WebhookFacade interface {
	HandleOrderEvent(ctx context.Context, shop string, event model.OrderEvent) (*model.MergeGroup, error)
}

// GroupFacade encapsulates merge group review operations exposed via HTTP.
type GroupFacade interface {
	PendingGroups(ctx context.Context, shop string) ([]model.MergeGroup, map[string][]string, error)
	ResolvedGroups(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error)
	ApproveGroup(ctx context.Context, id string) (*merge.Result, error)
	RejectGroup(ctx context.Context, id string) error
	GroupStats(ctx context.Context, shop string) (map[model.GroupStatus]int, error)
}

// SettingsFacade provides matching rule configuration.
type SettingsFacade interface {
	Settings(ctx context.Context, shop string) (*model.MatchRules, error)
	UpdateSettings(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error)
}

// EventFacade exposes the delivery audit log.
type EventFacade interface {
	RecentEvents(ctx context.Context, shop string, limit int) ([]model.EventSummary, error)
}

// MergeFacade aggregates the full set of operations used across handlers.
type MergeFacade interface {
	WebhookFacade
	GroupFacade
	SettingsFacade
	EventFacade
}
