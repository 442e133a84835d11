package dto

import (
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// SettingsRequest carries the editable matching rules of a shop.
type SettingsRequest struct {
	WindowMinutes     int  `json:"windowMinutes"`
	ByAddress         bool `json:"byAddress"`
	ByEmail           bool `json:"byEmail"`
	RequireBoth       bool `json:"requireBoth"`
	AutoCompleteDraft bool `json:"autoCompleteDraft"`
	AutoMerge         bool `json:"autoMerge"`
}

// ToModel binds the request to the shop.
func (r SettingsRequest) ToModel(shop string) model.MatchRules {
	return model.MatchRules{
		Shop:              shop,
		WindowMinutes:     r.WindowMinutes,
		ByAddress:         r.ByAddress,
		ByEmail:           r.ByEmail,
		RequireBoth:       r.RequireBoth,
		AutoCompleteDraft: r.AutoCompleteDraft,
		AutoMerge:         r.AutoMerge,
	}
}

// SettingsResponse represents the shop's matching rules.
type SettingsResponse struct {
	Shop              string    `json:"shop"`
	WindowMinutes     int       `json:"windowMinutes"`
	ByAddress         bool      `json:"byAddress"`
	ByEmail           bool      `json:"byEmail"`
	RequireBoth       bool      `json:"requireBoth"`
	AutoCompleteDraft bool      `json:"autoCompleteDraft"`
	AutoMerge         bool      `json:"autoMerge"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FromRules converts the domain rules.
func FromRules(r model.MatchRules) SettingsResponse {
	return SettingsResponse{
		Shop:              r.Shop,
		WindowMinutes:     r.WindowMinutes,
		ByAddress:         r.ByAddress,
		ByEmail:           r.ByEmail,
		RequireBoth:       r.RequireBoth,
		AutoCompleteDraft: r.AutoCompleteDraft,
		AutoMerge:         r.AutoMerge,
		UpdatedAt:         r.UpdatedAt,
	}
}

// EventResponse is one entry of the delivery audit log.
type EventResponse struct {
	OrderID        string    `json:"orderId"`
	Name           string    `json:"name"`
	OrderCreatedAt time.Time `json:"orderCreatedAt"`
	LineItemCount  int       `json:"lineItemCount"`
	TotalPrice     string    `json:"totalPrice,omitempty"`
	HasEmail       bool      `json:"hasEmail"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// FromEvent converts the domain audit record.
func FromEvent(e model.EventSummary) EventResponse {
	return EventResponse{
		OrderID:        e.OrderID,
		Name:           e.Name,
		OrderCreatedAt: e.OrderCreatedAt,
		LineItemCount:  e.LineItemCount,
		TotalPrice:     e.TotalPrice,
		HasEmail:       e.HasEmail,
		ReceivedAt:     e.ReceivedAt,
	}
}

// StatsResponse reports merge group counts per lifecycle status.
type StatsResponse struct {
	Pending      int `json:"pending"`
	DraftCreated int `json:"draftCreated"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Rejected     int `json:"rejected"`
}

// FromStats converts the per-status counts.
func FromStats(stats map[model.GroupStatus]int) StatsResponse {
	return StatsResponse{
		Pending:      stats[model.GroupStatusPending],
		DraftCreated: stats[model.GroupStatusDraftCreated],
		Completed:    stats[model.GroupStatusCompleted],
		Failed:       stats[model.GroupStatusFailed],
		Rejected:     stats[model.GroupStatusRejected],
	}
}
