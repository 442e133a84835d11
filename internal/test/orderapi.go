package test

import (
	"context"
	"sync"

	"github.com/reno-apps/ordermerge/internal/adapter/orderapi"
	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// TagCall records one TagOrder invocation.
type TagCall struct {
	Shop       string
	OrderID    string
	Tags       []string
	Attributes []model.Attribute
}

// OrderAPIStub implements orderapi.Client against in-memory fixtures and
// records every mutating call for assertions.
type OrderAPIStub struct {
	mu sync.Mutex

	Orders map[string]model.SourceOrder

	DraftID    string
	NewOrderID string

	FetchErr    error
	CreateErr   error
	CompleteErr error
	TagErr      error

	CreatedDrafts   []orderapi.DraftInput
	CompletedDrafts []string
	TagCalls        []TagCall
}

// NewOrderAPIStub constructs a stub primed to answer with the given ids.
func NewOrderAPIStub(draftID, newOrderID string) *OrderAPIStub {
	return &OrderAPIStub{
		Orders:     make(map[string]model.SourceOrder),
		DraftID:    draftID,
		NewOrderID: newOrderID,
	}
}

// AddOrder registers a fixture order returned by FetchOrders.
func (s *OrderAPIStub) AddOrder(order model.SourceOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orders[order.ID] = order
}

// FetchOrders returns fixture orders for the requested ids, skipping unknowns.
func (s *OrderAPIStub) FetchOrders(ctx context.Context, shop string, ids []string) ([]model.SourceOrder, error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.SourceOrder
	for _, id := range ids {
		if o, ok := s.Orders[id]; ok {
			result = append(result, o)
		}
	}
	return result, nil
}

// CreateDraft records the input and returns the primed draft id.
func (s *OrderAPIStub) CreateDraft(ctx context.Context, shop string, input orderapi.DraftInput) (string, error) {
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreatedDrafts = append(s.CreatedDrafts, input)
	return s.DraftID, nil
}

// CompleteDraft records the draft id and returns the primed order id.
func (s *OrderAPIStub) CompleteDraft(ctx context.Context, shop, draftID string) (string, error) {
	if s.CompleteErr != nil {
		return "", s.CompleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CompletedDrafts = append(s.CompletedDrafts, draftID)
	return s.NewOrderID, nil
}

// TagOrder records the call.
func (s *OrderAPIStub) TagOrder(ctx context.Context, shop, orderID string, tags []string, attributes []model.Attribute) error {
	if s.TagErr != nil {
		return s.TagErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TagCalls = append(s.TagCalls, TagCall{Shop: shop, OrderID: orderID, Tags: tags, Attributes: attributes})
	return nil
}
