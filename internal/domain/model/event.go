package model

import "time"

// Markers stamped onto orders produced or consumed by a merge. An incoming
// order carrying either one is itself a merge output and must never seed a
// new group.
const (
	TagMerged      = "MERGED"
	TagReplaced    = "REPLACED"
	AttrMergedFrom = "MergedFrom"
	AttrMergedInto = "MergedInto"
)

// Attribute is a single key/value custom attribute attached to an order.
type Attribute struct {
	Key   string
	Value string
}

// Address holds the canonical shipping address of an inbound event. The
// boundary adapter resolves raw field-name variants before the core sees it.
type Address struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	Province string
	Zip      string
	Country  string
}

// LineItem is one purchasable line of an order.
type LineItem struct {
	Quantity  int
	VariantID string
	Title     string
}

// OrderEvent is the canonical shape of one inbound order-creation event.
type OrderEvent struct {
	ID              string
	Name            string
	CreatedAt       time.Time
	Email           string
	ShippingAddress Address
	Cancelled       bool
	Tags            []string
	Attributes      []Attribute
	LineItems       []LineItem
	TotalPrice      string
}

// IsMergeOutput reports whether the event describes an order synthesized by a
// previous merge.
func (e OrderEvent) IsMergeOutput() bool {
	for _, tag := range e.Tags {
		if tag == TagMerged {
			return true
		}
	}
	for _, attr := range e.Attributes {
		if attr.Key == AttrMergedFrom {
			return true
		}
	}
	return false
}

// EventSummary is the PII-free audit record kept for every delivery.
type EventSummary struct {
	Shop               string
	OrderID            string
	Name               string
	OrderCreatedAt     time.Time
	AddressFingerprint string
	LineItemCount      int
	TotalPrice         string
	HasEmail           bool
	ReceivedAt         time.Time
}
