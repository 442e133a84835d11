package matching

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
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

type engineFixture struct {
	engine   *Engine
	orders   *test.OrderIndexStub
	groups   *test.GroupRepositoryStub
	settings *test.SettingsRepositoryStub
}

func newEngineFixture(t *testing.T, now time.Time) *engineFixture {
	t.Helper()
	orders := test.NewOrderIndexStub()
	groups := test.NewGroupRepositoryStub(orders)
	settings := test.NewSettingsRepositoryStub()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(fingerprint.NewGenerator("test-salt"), orders, groups, settings, logger)
	engine.now = func() time.Time { return now }
	return &engineFixture{engine: engine, orders: orders, groups: groups, settings: settings}
}

func makeEvent(id, name string, createdAt time.Time) model.OrderEvent {
	return model.OrderEvent{
		ID:              id,
		Name:            name,
		CreatedAt:       createdAt,
		Email:           "jane@example.com",
		ShippingAddress: testAddress,
		LineItems:       []model.LineItem{{Quantity: 1, VariantID: "v1", Title: "Mug"}},
	}
}

func TestEngineCreatesGroupForDuplicatePair(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)
	ctx := context.Background()

	first := makeEvent("1001", "#1001", now.Add(-10*time.Minute))
	group, err := f.engine.Process(ctx, testShop, first)
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if group != nil {
		t.Fatalf("single order must not form a group, got %s", group.ID)
	}

	second := makeEvent("1002", "#1002", now)
	group, err = f.engine.Process(ctx, testShop, second)
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if group == nil {
		t.Fatal("expected a merge group for the duplicate pair")
	}
	if group.Reason != model.MergeReasonAddress {
		t.Errorf("reason = %s, want %s", group.Reason, model.MergeReasonAddress)
	}
	if group.Status != model.GroupStatusPending {
		t.Errorf("status = %s, want pending", group.Status)
	}
	if len(group.OriginalIDs) != 2 {
		t.Fatalf("members = %v, want both orders", group.OriginalIDs)
	}
	if group.OriginalIDs[0] != "1001" || group.OriginalIDs[1] != "1002" {
		t.Errorf("members not in creation order: %v", group.OriginalIDs)
	}

	for _, id := range group.OriginalIDs {
		record, ok := f.orders.Record(testShop, id)
		if !ok {
			t.Fatalf("order %s missing from index", id)
		}
		if record.Status != model.OrderStatusReplaced {
			t.Errorf("order %s status = %s, want replaced", id, record.Status)
		}
		if record.MergeGroupID != group.ID {
			t.Errorf("order %s group = %q, want %q", id, record.MergeGroupID, group.ID)
		}
	}
}

func TestEngineSkipsCancelledOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)

	event := makeEvent("2001", "#2001", now)
	event.Cancelled = true

	group, err := f.engine.Process(context.Background(), testShop, event)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if group != nil {
		t.Fatal("cancelled order must not form a group")
	}
	if _, ok := f.orders.Record(testShop, "2001"); ok {
		t.Error("cancelled order must not be indexed")
	}
}

func TestEngineIndexesMergeOutputWithoutGrouping(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)
	ctx := context.Background()

	if _, err := f.engine.Process(ctx, testShop, makeEvent("3001", "#3001", now.Add(-5*time.Minute))); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	merged := makeEvent("3002", "#3002", now)
	merged.Tags = []string{model.TagMerged}

	group, err := f.engine.Process(ctx, testShop, merged)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if group != nil {
		t.Fatal("merge output must never seed a group")
	}
	record, ok := f.orders.Record(testShop, "3002")
	if !ok {
		t.Fatal("merge output must be indexed for future matching")
	}
	if record.Status != model.OrderStatusMerged {
		t.Errorf("status = %s, want merged", record.Status)
	}

	// A later plain duplicate can still match against it.
	later, err := f.engine.Process(ctx, testShop, makeEvent("3003", "#3003", now.Add(time.Minute)))
	if err != nil {
		t.Fatalf("later event: %v", err)
	}
	if later == nil {
		t.Fatal("merged record should remain a valid candidate")
	}
}

func TestEngineMergedFromAttributeIsMergeOutput(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)

	event := makeEvent("3101", "#3101", now)
	event.Attributes = []model.Attribute{{Key: model.AttrMergedFrom, Value: "#900, #901"}}

	group, err := f.engine.Process(context.Background(), testShop, event)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if group != nil {
		t.Fatal("MergedFrom-carrying order must not seed a group")
	}
	record, _ := f.orders.Record(testShop, "3101")
	if record.Status != model.OrderStatusMerged {
		t.Errorf("status = %s, want merged", record.Status)
	}
}

func TestEngineWindowBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		gap       time.Duration
		wantGroup bool
	}{
		{name: "inside window", gap: 119 * time.Minute, wantGroup: true},
		{name: "exactly at window", gap: 120 * time.Minute, wantGroup: true},
		{name: "outside window", gap: 121 * time.Minute, wantGroup: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t, now)
			ctx := context.Background()

			// Pre-seed the index directly so the candidate is visible even
			// when its creation time is outside the lookback.
			old := makeEvent("4001", "#4001", now.Add(-tc.gap))
			fp := fingerprint.NewGenerator("test-salt")
			if err := f.orders.Upsert(ctx, model.OrderRecord{
				ID: old.ID, Shop: testShop, Name: old.Name, CreatedAt: old.CreatedAt,
				AddressFingerprint: fp.Address(testShop, old.ShippingAddress),
				Status:             model.OrderStatusOpen,
			}); err != nil {
				t.Fatalf("seed: %v", err)
			}

			group, err := f.engine.Process(ctx, testShop, makeEvent("4002", "#4002", now))
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			if got := group != nil; got != tc.wantGroup {
				t.Errorf("group created = %v, want %v", got, tc.wantGroup)
			}
		})
	}
}

func TestEngineRequireBothRules(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		email      string
		otherEmail string
		wantGroup  bool
		wantReason model.MergeReason
	}{
		{name: "same address and email", email: "jane@example.com", otherEmail: "Jane@Example.com", wantGroup: true, wantReason: model.MergeReasonBoth},
		{name: "same address different email", email: "jane@example.com", otherEmail: "john@example.com", wantGroup: false},
		{name: "missing email never matches", email: "", otherEmail: "", wantGroup: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t, now)
			ctx := context.Background()

			rules := model.DefaultMatchRules(testShop)
			rules.ByEmail = true
			rules.RequireBoth = true
			if _, err := f.settings.Update(ctx, rules); err != nil {
				t.Fatalf("settings: %v", err)
			}

			first := makeEvent("5001", "#5001", now.Add(-10*time.Minute))
			first.Email = tc.email
			second := makeEvent("5002", "#5002", now)
			second.Email = tc.otherEmail

			if _, err := f.engine.Process(ctx, testShop, first); err != nil {
				t.Fatalf("first event: %v", err)
			}
			group, err := f.engine.Process(ctx, testShop, second)
			if err != nil {
				t.Fatalf("second event: %v", err)
			}
			if got := group != nil; got != tc.wantGroup {
				t.Fatalf("group created = %v, want %v", got, tc.wantGroup)
			}
			if group != nil && group.Reason != tc.wantReason {
				t.Errorf("reason = %s, want %s", group.Reason, tc.wantReason)
			}
		})
	}
}

func TestEngineCandidateConflictAbortsQuietly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)
	ctx := context.Background()

	// Point the group repository at a detached index so every claim fails,
	// simulating a concurrent detection that won the race.
	f.groups.Orders = test.NewOrderIndexStub()

	if _, err := f.engine.Process(ctx, testShop, makeEvent("6001", "#6001", now.Add(-time.Minute))); err != nil {
		t.Fatalf("first event: %v", err)
	}
	group, err := f.engine.Process(ctx, testShop, makeEvent("6002", "#6002", now))
	if err != nil {
		t.Fatalf("conflict must not surface as an error, got %v", err)
	}
	if group != nil {
		t.Fatal("conflicted group must not be reported")
	}

	// Both orders stay open for the winning detection to use.
	for _, id := range []string{"6001", "6002"} {
		record, _ := f.orders.Record(testShop, id)
		if record.Status != model.OrderStatusOpen {
			t.Errorf("order %s status = %s, want open", id, record.Status)
		}
	}
}

func TestEngineRedeliveryIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newEngineFixture(t, now)
	ctx := context.Background()

	first := makeEvent("7001", "#7001", now.Add(-10*time.Minute))
	second := makeEvent("7002", "#7002", now)
	if _, err := f.engine.Process(ctx, testShop, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	group, err := f.engine.Process(ctx, testShop, second)
	if err != nil || group == nil {
		t.Fatalf("expected group, got %v, %v", group, err)
	}

	// Redelivery of the same webhook: members are already replaced, so the
	// upsert keeps their claim and no second group forms.
	again, err := f.engine.Process(ctx, testShop, second)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if again != nil {
		t.Fatalf("redelivery created a second group %s", again.ID)
	}
	record, _ := f.orders.Record(testShop, "7002")
	if record.Status != model.OrderStatusReplaced || record.MergeGroupID != group.ID {
		t.Errorf("redelivery disturbed the claim: status=%s group=%q", record.Status, record.MergeGroupID)
	}
}
