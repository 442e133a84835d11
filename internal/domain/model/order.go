package model

import "time"

// OrderStatus describes eligibility of an indexed order for matching.
type OrderStatus string

const (
	// OrderStatusOpen marks an order available as a merge candidate.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusReplaced marks an order owned by an in-flight merge group.
	OrderStatusReplaced OrderStatus = "replaced"
	// OrderStatusMerged marks a synthesized output order. Merged orders stay
	// matchable so a fresh duplicate can be merged into them again.
	OrderStatusMerged OrderStatus = "merged"
)

// OrderRecord is the indexed representation of one observed order, real or
// synthesized. Only fingerprints of identifying data are ever stored.
type OrderRecord struct {
	ID                 string
	Shop               string
	Name               string
	CreatedAt          time.Time
	AddressFingerprint string
	EmailFingerprint   string
	Status             OrderStatus
	MergeGroupID       string
	UpdatedAt          time.Time
}
