package model

import "time"

// GroupStatus describes merge group lifecycle.
type GroupStatus string

const (
	GroupStatusPending      GroupStatus = "pending"
	GroupStatusDraftCreated GroupStatus = "draft_created"
	GroupStatusCompleted    GroupStatus = "completed"
	GroupStatusFailed       GroupStatus = "failed"
	GroupStatusRejected     GroupStatus = "rejected"
)

// MergeReason records which rule produced the match.
type MergeReason string

const (
	MergeReasonAddress MergeReason = "address"
	MergeReasonEmail   MergeReason = "email"
	MergeReasonBoth    MergeReason = "both"
)

// validTransitions lists the legal lifecycle moves. Terminal states have no
// outgoing edges; a failed group is re-attempted through explicit approval,
// which restarts the pipeline rather than transitioning the old state.
var validTransitions = map[GroupStatus][]GroupStatus{
	GroupStatusPending:      {GroupStatusDraftCreated, GroupStatusFailed, GroupStatusRejected},
	GroupStatusDraftCreated: {GroupStatusCompleted, GroupStatusFailed},
}

// CanTransition reports whether a group may move from one status to another.
func CanTransition(from, to GroupStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status is final.
func IsTerminal(s GroupStatus) bool {
	return s == GroupStatusCompleted || s == GroupStatusFailed || s == GroupStatusRejected
}

// MergeGroup is a detected or resolved set of duplicate orders. OriginalIDs is
// immutable after creation and always holds at least two order ids.
type MergeGroup struct {
	ID            string
	Shop          string
	WindowMinutes int
	OriginalIDs   []string
	Reason        MergeReason
	Status        GroupStatus
	DraftID       string
	NewOrderID    string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
