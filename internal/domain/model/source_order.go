package model

import "time"

// SourceOrder is the full detail of one member order fetched from the
// external order source during merge execution.
type SourceOrder struct {
	ID                string
	Name              string
	Email             string
	CancelledAt       *time.Time
	FinancialStatus   string
	FulfillmentStatus string
	ShippingAddress   Address
	Tags              []string
	Attributes        []Attribute
	LineItems         []LineItem
}

// IsCancelled reports whether the order was voided at the source.
func (o SourceOrder) IsCancelled() bool {
	return o.CancelledAt != nil || o.FinancialStatus == "CANCELLED"
}

// IsMergeOutput reports whether the order was itself produced by a merge.
func (o SourceOrder) IsMergeOutput() bool {
	for _, tag := range o.Tags {
		if tag == TagMerged {
			return true
		}
	}
	return false
}

// AttributeValue returns the value of the named custom attribute, if present.
func (o SourceOrder) AttributeValue(key string) (string, bool) {
	for _, attr := range o.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
