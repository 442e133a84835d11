package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
	"github.com/reno-apps/ordermerge/internal/merge"
	"github.com/reno-apps/ordermerge/internal/test"
)

const testShop = "demo.myshopify.com"

func TestSettingsUpdateValidation(t *testing.T) {
	u := NewSettingsUseCase(test.NewSettingsRepositoryStub())
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*model.MatchRules)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(r *model.MatchRules) {}},
		{name: "window too small", mutate: func(r *model.MatchRules) { r.WindowMinutes = 4 }, wantErr: true},
		{name: "window too large", mutate: func(r *model.MatchRules) { r.WindowMinutes = 1441 }, wantErr: true},
		{name: "window at floor", mutate: func(r *model.MatchRules) { r.WindowMinutes = 5 }},
		{name: "window at ceiling", mutate: func(r *model.MatchRules) { r.WindowMinutes = 1440 }},
		{name: "no rules enabled", mutate: func(r *model.MatchRules) { r.ByAddress = false; r.ByEmail = false }, wantErr: true},
		{name: "require both needs both", mutate: func(r *model.MatchRules) { r.RequireBoth = true; r.ByEmail = false }, wantErr: true},
		{name: "require both with both", mutate: func(r *model.MatchRules) { r.RequireBoth = true; r.ByEmail = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := model.DefaultMatchRules(testShop)
			tc.mutate(&rules)
			_, err := u.Update(ctx, rules)
			if tc.wantErr && !errors.Is(err, domainErrors.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestSettingsGetRequiresShop(t *testing.T) {
	u := NewSettingsUseCase(test.NewSettingsRepositoryStub())
	if _, err := u.Get(context.Background(), ""); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

type groupFixture struct {
	usecase *GroupUseCase
	api     *test.OrderAPIStub
	orders  *test.OrderIndexStub
	groups  *test.GroupRepositoryStub
}

func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	orders := test.NewOrderIndexStub()
	groups := test.NewGroupRepositoryStub(orders)
	settings := test.NewSettingsRepositoryStub()
	api := test.NewOrderAPIStub("draft-1", "order-1")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := merge.NewExecutor(api, orders, groups, settings, fingerprint.NewGenerator("test-salt"), logger)
	return &groupFixture{
		usecase: NewGroupUseCase(groups, orders, executor),
		api:     api,
		orders:  orders,
		groups:  groups,
	}
}

func (f *groupFixture) seedGroup(t *testing.T, id string, ids ...string) *model.MergeGroup {
	t.Helper()
	ctx := context.Background()
	for _, orderID := range ids {
		if err := f.orders.Upsert(ctx, model.OrderRecord{
			ID: orderID, Shop: testShop, Name: "#" + orderID, Status: model.OrderStatusOpen,
		}); err != nil {
			t.Fatalf("seed index: %v", err)
		}
		f.api.AddOrder(model.SourceOrder{
			ID:        orderID,
			Name:      "#" + orderID,
			LineItems: []model.LineItem{{Quantity: 1, VariantID: "v1", Title: "Mug"}},
		})
	}
	group := &model.MergeGroup{
		ID: id, Shop: testShop, WindowMinutes: 120,
		OriginalIDs: ids, Reason: model.MergeReasonAddress,
	}
	if err := f.groups.Create(ctx, group); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return group
}

func TestGroupApproveCompletesMerge(t *testing.T) {
	f := newGroupFixture(t)
	f.seedGroup(t, "g1", "1001", "1002")

	result, err := f.usecase.Approve(context.Background(), "g1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !result.Completed || result.NewOrderID != "order-1" {
		t.Fatalf("result = %+v", result)
	}
	stored, _ := f.groups.Get(context.Background(), "g1")
	if stored.Status != model.GroupStatusCompleted {
		t.Errorf("status = %s, want completed", stored.Status)
	}
}

func TestGroupApproveValidation(t *testing.T) {
	f := newGroupFixture(t)

	if _, err := f.usecase.Approve(context.Background(), ""); !errors.Is(err, domainErrors.ErrValidation) {
		t.Errorf("blank id: err = %v, want validation error", err)
	}
	if _, err := f.usecase.Approve(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want not found", err)
	}

	group := f.seedGroup(t, "g2", "2001", "2002")
	if _, err := f.usecase.Approve(context.Background(), group.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.usecase.Approve(context.Background(), group.ID); !errors.Is(err, domainErrors.ErrIllegalTransition) {
		t.Errorf("completed group: err = %v, want illegal transition", err)
	}
}

func TestGroupApproveRetriesFailedGroup(t *testing.T) {
	f := newGroupFixture(t)
	group := f.seedGroup(t, "g3", "3001", "3002")

	f.api.CreateErr = domainErrors.APIError{Status: 502, Detail: "upstream down"}
	if _, err := f.usecase.Approve(context.Background(), group.ID); err == nil {
		t.Fatal("expected first approval to fail")
	}
	stored, _ := f.groups.Get(context.Background(), group.ID)
	if stored.Status != model.GroupStatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}

	f.api.CreateErr = nil
	result, err := f.usecase.Approve(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !result.Completed {
		t.Fatalf("result = %+v, want completed", result)
	}
}

func TestGroupRejectReleasesMembers(t *testing.T) {
	f := newGroupFixture(t)
	group := f.seedGroup(t, "g4", "4001", "4002")

	if err := f.usecase.Reject(context.Background(), group.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	stored, _ := f.groups.Get(context.Background(), group.ID)
	if stored.Status != model.GroupStatusRejected {
		t.Errorf("status = %s, want rejected", stored.Status)
	}
	for _, id := range group.OriginalIDs {
		record, _ := f.orders.Record(testShop, id)
		if record.Status != model.OrderStatusOpen || record.MergeGroupID != "" {
			t.Errorf("order %s not released: %+v", id, record)
		}
	}

	if err := f.usecase.Reject(context.Background(), group.ID); !errors.Is(err, domainErrors.ErrIllegalTransition) {
		t.Errorf("double reject: err = %v, want illegal transition", err)
	}
}

func TestGroupListPendingResolvesNames(t *testing.T) {
	f := newGroupFixture(t)
	group := f.seedGroup(t, "g5", "5001", "5002")

	groups, names, err := f.usecase.ListPending(context.Background(), testShop)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Fatalf("groups = %+v", groups)
	}
	resolved := names[group.ID]
	if len(resolved) != 2 || resolved[0] != "#5001" || resolved[1] != "#5002" {
		t.Errorf("names = %v", resolved)
	}
}

func TestGroupStats(t *testing.T) {
	f := newGroupFixture(t)
	f.seedGroup(t, "g6", "6001", "6002")
	group := f.seedGroup(t, "g7", "7001", "7002")
	if _, err := f.usecase.Approve(context.Background(), group.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stats, err := f.usecase.Stats(context.Background(), testShop)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[model.GroupStatusPending] != 1 || stats[model.GroupStatusCompleted] != 1 {
		t.Errorf("stats = %v", stats)
	}
}
