package dto

import (
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// GroupResponse represents one merge group in API responses.
type GroupResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason"`
	WindowMinutes int       `json:"windowMinutes"`
	OrderIDs      []string  `json:"orderIds"`
	OrderNames    []string  `json:"orderNames,omitempty"`
	DraftID       string    `json:"draftId,omitempty"`
	NewOrderID    string    `json:"newOrderId,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromGroup converts the domain group, optionally attaching display names.
func FromGroup(g model.MergeGroup, names []string) GroupResponse {
	return GroupResponse{
		ID:            g.ID,
		Status:        string(g.Status),
		Reason:        string(g.Reason),
		WindowMinutes: g.WindowMinutes,
		OrderIDs:      g.OriginalIDs,
		OrderNames:    names,
		DraftID:       g.DraftID,
		NewOrderID:    g.NewOrderID,
		FailureReason: g.FailureReason,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// ApproveResponse reports the outcome of an approved merge.
type ApproveResponse struct {
	GroupID    string `json:"groupId"`
	DraftID    string `json:"draftId,omitempty"`
	NewOrderID string `json:"newOrderId,omitempty"`
	Completed  bool   `json:"completed"`
}

// WebhookResponse acknowledges an order webhook delivery.
type WebhookResponse struct {
	Received bool   `json:"received"`
	GroupID  string `json:"groupId,omitempty"`
}
