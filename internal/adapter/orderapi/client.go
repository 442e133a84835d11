package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// Client exposes operations against the external order-management API.
type Client interface {
	FetchOrders(ctx context.Context, shop string, ids []string) ([]model.SourceOrder, error)
	CreateDraft(ctx context.Context, shop string, input DraftInput) (string, error)
	CompleteDraft(ctx context.Context, shop, draftID string) (string, error)
	TagOrder(ctx context.Context, shop, orderID string, tags []string, attributes []model.Attribute) error
}

// DraftAddress is the shipping address shape of a draft-creation request.
type DraftAddress struct {
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	Zip         string `json:"zip,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

// DraftLineItem references a variant when known, otherwise a bare title.
type DraftLineItem struct {
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
}

type attributePayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DraftInput is the order-creation request submitted by the merge executor.
type DraftInput struct {
	Email            string             `json:"email,omitempty"`
	ShippingAddress  *DraftAddress      `json:"shippingAddress,omitempty"`
	LineItems        []DraftLineItem    `json:"lineItems"`
	Tags             []string           `json:"tags"`
	CustomAttributes []attributePayload `json:"customAttributes"`
}

// NewDraftInput assembles a DraftInput from domain values.
func NewDraftInput(email string, addr *DraftAddress, items []DraftLineItem, tags []string, attributes []model.Attribute) DraftInput {
	payload := make([]attributePayload, 0, len(attributes))
	for _, a := range attributes {
		payload = append(payload, attributePayload{Key: a.Key, Value: a.Value})
	}
	return DraftInput{
		Email:            email,
		ShippingAddress:  addr,
		LineItems:        items,
		Tags:             tags,
		CustomAttributes: payload,
	}
}

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type orderPayload struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	CancelledAt       *time.Time         `json:"cancelledAt"`
	FinancialStatus   string             `json:"financialStatus"`
	FulfillmentStatus string             `json:"fulfillmentStatus"`
	ShippingAddress   addressPayload     `json:"shippingAddress"`
	Tags              []string           `json:"tags"`
	CustomAttributes  []attributePayload `json:"customAttributes"`
	LineItems         []lineItemPayload  `json:"lineItems"`
}

type addressPayload struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"countryCode"`
}

type lineItemPayload struct {
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
}

// HTTPClient implements Client via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates HTTP order API client with default timeout.
func NewHTTPClient(baseURL, token string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse order api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("order api url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// FetchOrders requests full detail for the given order ids. Unknown ids are
// omitted from the response rather than reported as errors.
func (c *HTTPClient) FetchOrders(ctx context.Context, shop string, ids []string) ([]model.SourceOrder, error) {
	var resp struct {
		Orders []orderPayload `json:"orders"`
	}
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	if err := c.do(ctx, shop, http.MethodPost, "/api/orders/batch", req, &resp); err != nil {
		return nil, err
	}

	orders := make([]model.SourceOrder, 0, len(resp.Orders))
	for _, p := range resp.Orders {
		orders = append(orders, toSourceOrder(p))
	}
	return orders, nil
}

// CreateDraft submits an order-creation request and returns the draft id.
// Remote field validation errors come back as a domain APIError with the
// error list serialized verbatim.
func (c *HTTPClient) CreateDraft(ctx context.Context, shop string, input DraftInput) (string, error) {
	var resp struct {
		DraftID string       `json:"draftId"`
		Errors  []fieldError `json:"errors"`
	}
	if err := c.do(ctx, shop, http.MethodPost, "/api/drafts", input, &resp); err != nil {
		return "", err
	}
	if resp.DraftID == "" {
		return "", validationError(resp.Errors, "draft create failed")
	}
	return resp.DraftID, nil
}

// CompleteDraft finalizes a draft into a real order and returns the order id.
func (c *HTTPClient) CompleteDraft(ctx context.Context, shop, draftID string) (string, error) {
	var resp struct {
		NewOrderID string       `json:"newOrderId"`
		Errors     []fieldError `json:"errors"`
	}
	endpoint := path.Join("/api/drafts", url.PathEscape(draftID), "complete")
	if err := c.do(ctx, shop, http.MethodPost, endpoint, nil, &resp); err != nil {
		return "", err
	}
	if resp.NewOrderID == "" {
		return "", validationError(resp.Errors, "draft complete failed")
	}
	return resp.NewOrderID, nil
}

// TagOrder overwrites tags and custom attributes on an order. The operation
// is idempotent on the remote side.
func (c *HTTPClient) TagOrder(ctx context.Context, shop, orderID string, tags []string, attributes []model.Attribute) error {
	payload := make([]attributePayload, 0, len(attributes))
	for _, a := range attributes {
		payload = append(payload, attributePayload{Key: a.Key, Value: a.Value})
	}
	req := struct {
		Tags             []string           `json:"tags"`
		CustomAttributes []attributePayload `json:"customAttributes"`
	}{Tags: tags, CustomAttributes: payload}

	endpoint := path.Join("/api/orders", url.PathEscape(orderID), "tags")
	return c.do(ctx, shop, http.MethodPost, endpoint, req, &struct{}{})
}

func (c *HTTPClient) do(ctx context.Context, shop, method, endpoint string, in, out any) error {
	target := *c.baseURL
	target.Path = path.Join(target.Path, endpoint)

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shop-Domain", shop)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domainErrors.APIError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainErrors.APIError{Status: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("order api request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)),
		)
		return domainErrors.APIError{Status: resp.StatusCode, Detail: string(raw)}
	}

	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// validationError serializes remote field errors verbatim, falling back to a
// fixed message when the API reported nothing structured.
func validationError(errs []fieldError, fallback string) error {
	if len(errs) == 0 {
		return domainErrors.APIError{Detail: fallback}
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return domainErrors.APIError{Detail: fallback}
	}
	return domainErrors.APIError{Detail: string(encoded)}
}

func toSourceOrder(p orderPayload) model.SourceOrder {
	attrs := make([]model.Attribute, 0, len(p.CustomAttributes))
	for _, a := range p.CustomAttributes {
		attrs = append(attrs, model.Attribute{Key: a.Key, Value: a.Value})
	}
	items := make([]model.LineItem, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		items = append(items, model.LineItem{Quantity: li.Quantity, VariantID: li.VariantID, Title: li.Title})
	}
	return model.SourceOrder{
		ID:                p.ID,
		Name:              p.Name,
		Email:             p.Email,
		CancelledAt:       p.CancelledAt,
		FinancialStatus:   p.FinancialStatus,
		FulfillmentStatus: p.FulfillmentStatus,
		ShippingAddress: model.Address{
			Name:     p.ShippingAddress.Name,
			Address1: p.ShippingAddress.Address1,
			Address2: p.ShippingAddress.Address2,
			City:     p.ShippingAddress.City,
			Province: p.ShippingAddress.Province,
			Zip:      p.ShippingAddress.Zip,
			Country:  p.ShippingAddress.Country,
		},
		Tags:       p.Tags,
		Attributes: attrs,
		LineItems:  items,
	}
}
