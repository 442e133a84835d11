package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// OrderEventRequest is the raw webhook payload. Order sources disagree on
// field naming (snake_case REST deliveries vs camelCase bridged GraphQL
// payloads), so every field carries both spellings and ToModel resolves them.
type OrderEventRequest struct {
	ID              FlexibleID        `json:"id"`
	Name            string            `json:"name"`
	CreatedAt       *time.Time        `json:"created_at"`
	CreatedAtCamel  *time.Time        `json:"createdAt"`
	Email           string            `json:"email"`
	ContactEmail    string            `json:"contact_email"`
	CancelledAt     *time.Time        `json:"cancelled_at"`
	FinancialStatus string            `json:"financial_status"`
	DisplayStatus   string            `json:"displayFinancialStatus"`
	Tags            TagList           `json:"tags"`
	NoteAttributes  []AttributePair   `json:"note_attributes"`
	CustomAttrs     []AttributePair   `json:"customAttributes"`
	CustomAttrSnake []AttributePair   `json:"custom_attributes"`
	ShippingAddress *AddressPayload   `json:"shipping_address"`
	ShippingCamel   *AddressPayload   `json:"shippingAddress"`
	LineItems       []LineItemPayload `json:"line_items"`
	LineItemsCamel  []LineItemPayload `json:"lineItems"`
	TotalPrice      string            `json:"total_price"`
	TotalPriceCamel string            `json:"totalPrice"`
}

// FlexibleID accepts a JSON number or string identifier.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string { return string(f) }

// TagList accepts both a JSON array of tags and the comma-separated string
// REST deliveries use.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*t = nil
	for _, tag := range strings.Split(joined, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}
	return nil
}

// AttributePair is one custom attribute in either naming convention.
type AttributePair struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AddressPayload is the raw shipping address in either naming convention.
type AddressPayload struct {
	Name         string `json:"name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
}

// LineItemPayload is one raw order line in either naming convention.
type LineItemPayload struct {
	Quantity       int        `json:"quantity"`
	VariantID      FlexibleID `json:"variant_id"`
	VariantIDCamel FlexibleID `json:"variantId"`
	Title          string     `json:"title"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ToModel resolves the naming variants into the canonical event shape.
func (r OrderEventRequest) ToModel() model.OrderEvent {
	createdAt := time.Time{}
	if r.CreatedAt != nil {
		createdAt = *r.CreatedAt
	} else if r.CreatedAtCamel != nil {
		createdAt = *r.CreatedAtCamel
	}

	cancelled := r.CancelledAt != nil ||
		strings.EqualFold(r.FinancialStatus, "cancelled") ||
		strings.EqualFold(r.DisplayStatus, "cancelled")

	event := model.OrderEvent{
		ID:              r.ID.String(),
		Name:            r.Name,
		CreatedAt:       createdAt,
		Email:           firstNonEmpty(r.Email, r.ContactEmail),
		Cancelled:       cancelled,
		Tags:            r.Tags,
		ShippingAddress: r.address(),
		Attributes:      r.attributes(),
		LineItems:       r.lineItems(),
		TotalPrice:      firstNonEmpty(r.TotalPrice, r.TotalPriceCamel),
	}
	if event.Name == "" {
		event.Name = "#" + event.ID
	}
	return event
}

func (r OrderEventRequest) address() model.Address {
	raw := r.ShippingAddress
	if raw == nil {
		raw = r.ShippingCamel
	}
	if raw == nil {
		return model.Address{}
	}
	name := raw.Name
	if name == "" {
		name = strings.TrimSpace(raw.FirstName + " " + raw.LastName)
	}
	return model.Address{
		Name:     name,
		Address1: raw.Address1,
		Address2: raw.Address2,
		City:     raw.City,
		Province: firstNonEmpty(raw.Province, raw.ProvinceCode, raw.State),
		Zip:      firstNonEmpty(raw.Zip, raw.PostalCode),
		Country:  firstNonEmpty(raw.CountryCode, raw.Country),
	}
}

func (r OrderEventRequest) attributes() []model.Attribute {
	raw := r.CustomAttrs
	if len(raw) == 0 {
		raw = r.CustomAttrSnake
	}
	if len(raw) == 0 {
		raw = r.NoteAttributes
	}
	if len(raw) == 0 {
		return nil
	}
	attrs := make([]model.Attribute, 0, len(raw))
	for _, a := range raw {
		attrs = append(attrs, model.Attribute{Key: firstNonEmpty(a.Key, a.Name), Value: a.Value})
	}
	return attrs
}

func (r OrderEventRequest) lineItems() []model.LineItem {
	raw := r.LineItems
	if len(raw) == 0 {
		raw = r.LineItemsCamel
	}
	items := make([]model.LineItem, 0, len(raw))
	for _, li := range raw {
		variant := li.VariantID.String()
		if variant == "" {
			variant = li.VariantIDCamel.String()
		}
		items = append(items, model.LineItem{
			Quantity:  li.Quantity,
			VariantID: variant,
			Title:     li.Title,
		})
	}
	return items
}
