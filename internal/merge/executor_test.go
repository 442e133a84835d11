package merge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
	"github.com/reno-apps/ordermerge/internal/merge"
	"github.com/reno-apps/ordermerge/internal/test"
)

const testShop = "demo.myshopify.com"

var testAddress = model.Address{
	Name:     "Jane Doe",
	Address1: "12 Main St",
	City:     "Springfield",
	Province: "IL",
	Zip:      "62704",
	Country:  "US",
}

type executorFixture struct {
	executor *merge.Executor
	api      *test.OrderAPIStub
	orders   *test.OrderIndexStub
	groups   *test.GroupRepositoryStub
	settings *test.SettingsRepositoryStub
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()
	orders := test.NewOrderIndexStub()
	groups := test.NewGroupRepositoryStub(orders)
	settings := test.NewSettingsRepositoryStub()
	api := test.NewOrderAPIStub("draft-77", "order-88")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	executor := merge.NewExecutor(api, orders, groups, settings, fingerprint.NewGenerator("test-salt"), logger)
	merge.SetNow(executor, func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return &executorFixture{executor: executor, api: api, orders: orders, groups: groups, settings: settings}
}

func sourceOrder(id, name string) model.SourceOrder {
	return model.SourceOrder{
		ID:              id,
		Name:            name,
		Email:           "jane@example.com",
		ShippingAddress: testAddress,
		LineItems:       []model.LineItem{{Quantity: 1, VariantID: "v1", Title: "Mug"}},
	}
}

func (f *executorFixture) seedGroup(t *testing.T, ids ...string) model.MergeGroup {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		if err := f.orders.Upsert(ctx, model.OrderRecord{
			ID: id, Shop: testShop, Name: "#" + id, Status: model.OrderStatusOpen,
		}); err != nil {
			t.Fatalf("seed index: %v", err)
		}
	}
	group := model.MergeGroup{
		ID:            "grp-1",
		Shop:          testShop,
		WindowMinutes: 120,
		OriginalIDs:   ids,
		Reason:        model.MergeReasonAddress,
	}
	if err := f.groups.Create(ctx, &group); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return group
}

func TestExecutorHappyPath(t *testing.T) {
	f := newExecutorFixture(t)
	f.api.AddOrder(sourceOrder("1001", "#1001"))
	f.api.AddOrder(sourceOrder("1002", "#1002"))
	group := f.seedGroup(t, "1001", "1002")

	result, err := f.executor.Execute(context.Background(), group, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.DraftID != "draft-77" || result.NewOrderID != "order-88" || !result.Completed {
		t.Fatalf("result = %+v", result)
	}

	stored, err := f.groups.Get(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if stored.Status != model.GroupStatusCompleted {
		t.Errorf("group status = %s, want completed", stored.Status)
	}
	if stored.DraftID != "draft-77" || stored.NewOrderID != "order-88" {
		t.Errorf("group ids = %q/%q", stored.DraftID, stored.NewOrderID)
	}

	if len(f.api.CreatedDrafts) != 1 {
		t.Fatalf("drafts created = %d, want 1", len(f.api.CreatedDrafts))
	}
	draft := f.api.CreatedDrafts[0]
	if len(draft.LineItems) != 1 || draft.LineItems[0].Quantity != 2 {
		t.Errorf("line items = %+v, want single aggregated item with quantity 2", draft.LineItems)
	}
	if draft.ShippingAddress == nil || draft.ShippingAddress.FirstName != "Jane" || draft.ShippingAddress.LastName != "Doe" {
		t.Errorf("shipping address = %+v", draft.ShippingAddress)
	}
	if len(draft.Tags) != 1 || draft.Tags[0] != model.TagMerged {
		t.Errorf("draft tags = %v", draft.Tags)
	}
	if len(draft.CustomAttributes) != 1 || draft.CustomAttributes[0].Value != "#1001, #1002" {
		t.Errorf("provenance = %+v", draft.CustomAttributes)
	}

	if len(f.api.TagCalls) != 2 {
		t.Fatalf("tag calls = %d, want 2", len(f.api.TagCalls))
	}
	for _, call := range f.api.TagCalls {
		if !containsString(call.Tags, model.TagReplaced) || !containsString(call.Tags, model.TagMerged) {
			t.Errorf("order %s tags = %v", call.OrderID, call.Tags)
		}
		if v, ok := attributeValue(call.Attributes, model.AttrMergedInto); !ok || v != "order-88" {
			t.Errorf("order %s MergedInto = %q", call.OrderID, v)
		}
		if v, ok := attributeValue(call.Attributes, model.AttrMergedFrom); !ok || v != "#1001, #1002" {
			t.Errorf("order %s MergedFrom = %q, want member names", call.OrderID, v)
		}
	}

	record, ok := f.orders.Record(testShop, "order-88")
	if !ok {
		t.Fatal("merged order not indexed")
	}
	if record.Status != model.OrderStatusMerged || record.Name != "#order-88" {
		t.Errorf("merged record = %+v", record)
	}
	if record.AddressFingerprint == "" {
		t.Error("merged record has no address fingerprint")
	}
}

func TestExecutorExcludesCancelledMember(t *testing.T) {
	f := newExecutorFixture(t)
	cancelled := sourceOrder("2001", "#2001")
	at := time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC)
	cancelled.CancelledAt = &at
	f.api.AddOrder(cancelled)
	f.api.AddOrder(sourceOrder("2002", "#2002"))
	f.api.AddOrder(sourceOrder("2003", "#2003"))
	group := f.seedGroup(t, "2001", "2002", "2003")

	result, err := f.executor.Execute(context.Background(), group, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Completed {
		t.Fatal("expected completed merge")
	}

	draft := f.api.CreatedDrafts[0]
	if draft.LineItems[0].Quantity != 2 {
		t.Errorf("quantity = %d, cancelled member must not contribute", draft.LineItems[0].Quantity)
	}
	if draft.CustomAttributes[0].Value != "#2002, #2003" {
		t.Errorf("provenance = %q, cancelled member must be excluded", draft.CustomAttributes[0].Value)
	}
	for _, call := range f.api.TagCalls {
		if call.OrderID == "2001" {
			t.Error("cancelled member must not be tagged")
		}
	}
}

func TestExecutorUnmergeableGroups(t *testing.T) {
	at := time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		prepare func(f *executorFixture)
		reason  string
	}{
		{
			name:    "no orders found",
			prepare: func(f *executorFixture) {},
			reason:  "no orders found to merge",
		},
		{
			name: "all cancelled",
			prepare: func(f *executorFixture) {
				for _, id := range []string{"3001", "3002"} {
					o := sourceOrder(id, "#"+id)
					o.CancelledAt = &at
					f.api.AddOrder(o)
				}
			},
			reason: "all orders are cancelled - cannot merge",
		},
		{
			name: "single valid survivor",
			prepare: func(f *executorFixture) {
				o := sourceOrder("3001", "#3001")
				o.CancelledAt = &at
				f.api.AddOrder(o)
				f.api.AddOrder(sourceOrder("3002", "#3002"))
			},
			reason: "only one valid order found after excluding cancelled orders - cannot merge",
		},
		{
			name: "nothing to aggregate",
			prepare: func(f *executorFixture) {
				for _, id := range []string{"3001", "3002"} {
					o := sourceOrder(id, "#"+id)
					o.LineItems = nil
					f.api.AddOrder(o)
				}
			},
			reason: "no line items found to merge",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExecutorFixture(t)
			tc.prepare(f)
			group := f.seedGroup(t, "3001", "3002")

			_, err := f.executor.Execute(context.Background(), group, true)
			var unmergeable domainErrors.UnmergeableError
			if !errors.As(err, &unmergeable) {
				t.Fatalf("error = %v, want UnmergeableError", err)
			}
			if unmergeable.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", unmergeable.Reason, tc.reason)
			}

			stored, _ := f.groups.Get(context.Background(), group.ID)
			if stored.Status != model.GroupStatusFailed {
				t.Errorf("group status = %s, want failed", stored.Status)
			}
			if stored.FailureReason != tc.reason {
				t.Errorf("failure reason = %q, want %q", stored.FailureReason, tc.reason)
			}
			if len(f.api.CreatedDrafts) != 0 || len(f.api.TagCalls) != 0 {
				t.Error("unmergeable group must not touch the order api")
			}
		})
	}
}

func TestExecutorRemoteValidationFailure(t *testing.T) {
	f := newExecutorFixture(t)
	f.api.AddOrder(sourceOrder("4001", "#4001"))
	f.api.AddOrder(sourceOrder("4002", "#4002"))
	f.api.CreateErr = domainErrors.APIError{Detail: `[{"field":"lineItems","message":"must not be empty"}]`}
	group := f.seedGroup(t, "4001", "4002")

	_, err := f.executor.Execute(context.Background(), group, true)
	if err == nil {
		t.Fatal("expected error")
	}

	stored, _ := f.groups.Get(context.Background(), group.ID)
	if stored.Status != model.GroupStatusFailed {
		t.Fatalf("group status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.FailureReason, `"field":"lineItems"`) {
		t.Errorf("failure reason %q must carry the remote field error verbatim", stored.FailureReason)
	}
	if stored.DraftID != "" || stored.NewOrderID != "" {
		t.Errorf("failed group must not record ids: %q/%q", stored.DraftID, stored.NewOrderID)
	}
}

func TestExecutorReusesExistingDraft(t *testing.T) {
	f := newExecutorFixture(t)
	f.api.AddOrder(sourceOrder("5001", "#5001"))
	f.api.AddOrder(sourceOrder("5002", "#5002"))
	group := f.seedGroup(t, "5001", "5002")
	group.DraftID = "draft-earlier"

	result, err := f.executor.Execute(context.Background(), group, true)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(f.api.CreatedDrafts) != 0 {
		t.Error("existing draft must be reused, not recreated")
	}
	if result.DraftID != "draft-earlier" {
		t.Errorf("draft id = %q, want draft-earlier", result.DraftID)
	}
	if len(f.api.CompletedDrafts) != 1 || f.api.CompletedDrafts[0] != "draft-earlier" {
		t.Errorf("completed drafts = %v", f.api.CompletedDrafts)
	}
}

func TestExecutorStaysDraftWithoutAutoComplete(t *testing.T) {
	f := newExecutorFixture(t)
	f.api.AddOrder(sourceOrder("6001", "#6001"))
	f.api.AddOrder(sourceOrder("6002", "#6002"))
	group := f.seedGroup(t, "6001", "6002")

	// Background run for a shop with auto-complete off.
	result, err := f.executor.Execute(context.Background(), group, false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Completed || result.NewOrderID != "" {
		t.Fatalf("result = %+v, want uncompleted draft", result)
	}
	if len(f.api.CompletedDrafts) != 0 {
		t.Error("draft must not be completed")
	}

	stored, _ := f.groups.Get(context.Background(), group.ID)
	if stored.Status != model.GroupStatusDraftCreated {
		t.Errorf("group status = %s, want draft_created", stored.Status)
	}

	// Sources point at the draft until a real order exists.
	for _, call := range f.api.TagCalls {
		if v, _ := attributeValue(call.Attributes, model.AttrMergedInto); v != "draft-77" {
			t.Errorf("order %s MergedInto = %q, want draft id", call.OrderID, v)
		}
	}

	record, ok := f.orders.Record(testShop, "draft-77")
	if !ok {
		t.Fatal("draft must be indexed as the merged order")
	}
	if record.Name != "Draft-draft-77" {
		t.Errorf("draft record name = %q", record.Name)
	}
}

func TestExecutorChainsProvenance(t *testing.T) {
	f := newExecutorFixture(t)
	prior := sourceOrder("7001", "#7001")
	prior.Attributes = []model.Attribute{{Key: model.AttrMergedFrom, Value: "#900, #901"}}
	f.api.AddOrder(prior)
	f.api.AddOrder(sourceOrder("7002", "#7002"))
	group := f.seedGroup(t, "7001", "7002")

	if _, err := f.executor.Execute(context.Background(), group, true); err != nil {
		t.Fatalf("execute: %v", err)
	}

	draft := f.api.CreatedDrafts[0]
	if draft.CustomAttributes[0].Value != "#900, #901, #7002" {
		t.Errorf("provenance = %q, want chained names", draft.CustomAttributes[0].Value)
	}

	// The prior chain is extended with this merge's members on the source.
	for _, call := range f.api.TagCalls {
		switch call.OrderID {
		case "7001":
			if v, ok := attributeValue(call.Attributes, model.AttrMergedFrom); !ok || v != "#900, #901, #7001, #7002" {
				t.Errorf("MergedFrom on source = %q, want extended chain", v)
			}
		case "7002":
			if v, ok := attributeValue(call.Attributes, model.AttrMergedFrom); !ok || v != "#7001, #7002" {
				t.Errorf("MergedFrom on source = %q, want member names", v)
			}
		}
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func attributeValue(attrs []model.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
