package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// OrderIndexStub stores order records in-memory for tests.
type OrderIndexStub struct {
	mu      sync.Mutex
	Records map[string]*model.OrderRecord
	Err     error
}

// NewOrderIndexStub constructs stub repository with initialized maps.
func NewOrderIndexStub() *OrderIndexStub {
	return &OrderIndexStub{Records: make(map[string]*model.OrderRecord)}
}

func indexKey(shop, id string) string {
	return shop + "/" + id
}

// Upsert creates or replaces the record keyed by (shop, id).
func (s *OrderIndexStub) Upsert(ctx context.Context, record model.OrderRecord) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := record
	if existing, ok := s.Records[indexKey(record.Shop, record.ID)]; ok && existing.Status == model.OrderStatusReplaced {
		stored.Status = existing.Status
		stored.MergeGroupID = existing.MergeGroupID
	}
	s.Records[indexKey(record.Shop, record.ID)] = &stored
	return nil
}

// FindCandidates returns records for the fingerprint created at or after
// since, ascending by creation time.
func (s *OrderIndexStub) FindCandidates(ctx context.Context, shop, addressFingerprint string, since time.Time) ([]model.OrderRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.OrderRecord
	for _, r := range s.Records {
		if r.Shop == shop && r.AddressFingerprint == addressFingerprint && !r.CreatedAt.Before(since) {
			result = append(result, *r)
		}
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].CreatedAt.Before(result[i].CreatedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

// ResetToOpen releases records owned by the group.
func (s *OrderIndexStub) ResetToOpen(ctx context.Context, shop string, ids []string, groupID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if r, ok := s.Records[indexKey(shop, id)]; ok && r.MergeGroupID == groupID {
			r.Status = model.OrderStatusOpen
			r.MergeGroupID = ""
		}
	}
	return nil
}

// NamesByIDs resolves display names, falling back to the id.
func (s *OrderIndexStub) NamesByIDs(ctx context.Context, shop string, ids []string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.Records[indexKey(shop, id)]; ok && r.Name != "" {
			names = append(names, r.Name)
		} else {
			names = append(names, id)
		}
	}
	return names, nil
}

// Record returns the stored record for assertions.
func (s *OrderIndexStub) Record(shop, id string) (model.OrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.Records[indexKey(shop, id)]; ok {
		return *r, true
	}
	return model.OrderRecord{}, false
}

// GroupRepositoryStub stores merge groups in-memory and mirrors the claiming
// semantics of the postgres repository.
type GroupRepositoryStub struct {
	mu     sync.Mutex
	Groups map[string]*model.MergeGroup
	Orders *OrderIndexStub
	Err    error
}

// NewGroupRepositoryStub constructs stub backed by the given order index.
func NewGroupRepositoryStub(orders *OrderIndexStub) *GroupRepositoryStub {
	return &GroupRepositoryStub{Groups: make(map[string]*model.MergeGroup), Orders: orders}
}

// Create claims every member or fails with ErrCandidateConflict.
func (s *GroupRepositoryStub) Create(ctx context.Context, group *model.MergeGroup) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders != nil {
		s.Orders.mu.Lock()
		for _, id := range group.OriginalIDs {
			if r, ok := s.Orders.Records[indexKey(group.Shop, id)]; !ok || r.Status == model.OrderStatusReplaced {
				s.Orders.mu.Unlock()
				return domainErrors.ErrCandidateConflict
			}
		}
		for _, id := range group.OriginalIDs {
			r := s.Orders.Records[indexKey(group.Shop, id)]
			r.Status = model.OrderStatusReplaced
			r.MergeGroupID = group.ID
		}
		s.Orders.mu.Unlock()
	}
	group.Status = model.GroupStatusPending
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	s.Groups[group.ID] = group
	return nil
}

// Get fetches group by identifier or returns not found.
func (s *GroupRepositoryStub) Get(ctx context.Context, id string) (*model.MergeGroup, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.Groups[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// SetDraft records the draft id and advances the group.
func (s *GroupRepositoryStub) SetDraft(ctx context.Context, id, draftID string) error {
	return s.update(id, func(g *model.MergeGroup) {
		g.DraftID = draftID
		g.Status = model.GroupStatusDraftCreated
		g.FailureReason = ""
	})
}

// SetCompleted records the new order id and completes the group.
func (s *GroupRepositoryStub) SetCompleted(ctx context.Context, id, newOrderID string) error {
	return s.update(id, func(g *model.MergeGroup) {
		g.NewOrderID = newOrderID
		g.Status = model.GroupStatusCompleted
	})
}

// SetFailed records the failure reason.
func (s *GroupRepositoryStub) SetFailed(ctx context.Context, id, reason string) error {
	return s.update(id, func(g *model.MergeGroup) {
		g.Status = model.GroupStatusFailed
		g.FailureReason = reason
	})
}

// Reopen returns a failed group to pending.
func (s *GroupRepositoryStub) Reopen(ctx context.Context, id string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.Groups[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if g.Status != model.GroupStatusFailed {
		return domainErrors.ErrIllegalTransition
	}
	g.Status = model.GroupStatusPending
	g.FailureReason = ""
	return nil
}

// Reject rejects a pending group and releases its members.
func (s *GroupRepositoryStub) Reject(ctx context.Context, id string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	g, ok := s.Groups[id]
	if !ok {
		s.mu.Unlock()
		return domainErrors.ErrNotFound
	}
	if g.Status != model.GroupStatusPending {
		s.mu.Unlock()
		return domainErrors.ErrIllegalTransition
	}
	g.Status = model.GroupStatusRejected
	shop, ids := g.Shop, g.OriginalIDs
	s.mu.Unlock()
	if s.Orders != nil {
		return s.Orders.ResetToOpen(ctx, shop, ids, id)
	}
	return nil
}

// ListPending returns pending groups for the shop.
func (s *GroupRepositoryStub) ListPending(ctx context.Context, shop string) ([]model.MergeGroup, error) {
	return s.list(func(g *model.MergeGroup) bool {
		return g.Shop == shop && g.Status == model.GroupStatusPending
	})
}

// ListResolved returns completed/draft/failed groups for the shop.
func (s *GroupRepositoryStub) ListResolved(ctx context.Context, shop string, limit int) ([]model.MergeGroup, error) {
	groups, err := s.list(func(g *model.MergeGroup) bool {
		return g.Shop == shop && (g.Status == model.GroupStatusCompleted ||
			g.Status == model.GroupStatusDraftCreated || g.Status == model.GroupStatusFailed)
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// CountByStatus counts groups in the given status.
func (s *GroupRepositoryStub) CountByStatus(ctx context.Context, shop string, status model.GroupStatus) (int, error) {
	groups, err := s.list(func(g *model.MergeGroup) bool {
		return g.Shop == shop && g.Status == status
	})
	if err != nil {
		return 0, err
	}
	return len(groups), nil
}

// SelectPendingBatch returns up to limit pending groups.
func (s *GroupRepositoryStub) SelectPendingBatch(ctx context.Context, limit int) ([]model.MergeGroup, error) {
	groups, err := s.list(func(g *model.MergeGroup) bool {
		return g.Status == model.GroupStatusPending
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func (s *GroupRepositoryStub) update(id string, fn func(*model.MergeGroup)) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.Groups[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	fn(g)
	return nil
}

func (s *GroupRepositoryStub) list(match func(*model.MergeGroup) bool) ([]model.MergeGroup, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.MergeGroup
	for _, g := range s.Groups {
		if match(g) {
			result = append(result, *g)
		}
	}
	return result, nil
}

// SettingsRepositoryStub serves per-shop rules from memory.
type SettingsRepositoryStub struct {
	mu    sync.Mutex
	Rules map[string]model.MatchRules
	Err   error
}

// NewSettingsRepositoryStub constructs stub with initialized map.
func NewSettingsRepositoryStub() *SettingsRepositoryStub {
	return &SettingsRepositoryStub{Rules: make(map[string]model.MatchRules)}
}

// Get returns stored rules or defaults.
func (s *SettingsRepositoryStub) Get(ctx context.Context, shop string) (*model.MatchRules, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.Rules[shop]; ok {
		return &r, nil
	}
	rules := model.DefaultMatchRules(shop)
	s.Rules[shop] = rules
	return &rules, nil
}

// Update stores the rules verbatim.
func (s *SettingsRepositoryStub) Update(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rules[rules.Shop] = rules
	return &rules, nil
}

// EventRepositoryStub records saved event summaries.
type EventRepositoryStub struct {
	mu        sync.Mutex
	Summaries map[string]model.EventSummary
	Err       error
}

// NewEventRepositoryStub constructs stub with initialized map.
func NewEventRepositoryStub() *EventRepositoryStub {
	return &EventRepositoryStub{Summaries: make(map[string]model.EventSummary)}
}

// Save upserts the summary keyed by (shop, order id).
func (s *EventRepositoryStub) Save(ctx context.Context, summary model.EventSummary) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Summaries[indexKey(summary.Shop, summary.OrderID)] = summary
	return nil
}

// ListRecent returns stored summaries for the shop.
func (s *EventRepositoryStub) ListRecent(ctx context.Context, shop string, limit int) ([]model.EventSummary, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.EventSummary
	for _, e := range s.Summaries {
		if e.Shop == shop {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
