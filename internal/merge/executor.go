package merge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/reno-apps/ordermerge/internal/adapter/orderapi"
	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/metrics"
)

// maxProvenanceLen caps the MergedFrom attribute value. Chains of repeated
// merges would otherwise grow the attribute without bound.
const maxProvenanceLen = 255

// Result reports the outcome of one merge execution.
type Result struct {
	GroupID    string
	DraftID    string
	NewOrderID string
	Completed  bool
}

// Executor turns a pending merge group into a combined order through the
// external order API, advancing the group through its lifecycle as each
// stage lands.
type Executor struct {
	api      orderapi.Client
	orders   repository.OrderIndexRepository
	groups   repository.MergeGroupRepository
	settings repository.SettingsRepository
	fp       fingerprinter
	logger   *slog.Logger
	now      func() time.Time
}

// fingerprinter is the slice of the fingerprint generator the executor needs
// to re-index the synthesized order.
type fingerprinter interface {
	Address(shop string, addr model.Address) string
	Email(shop, email string) (string, bool)
}

// NewExecutor constructs the merge executor.
func NewExecutor(
	api orderapi.Client,
	orders repository.OrderIndexRepository,
	groups repository.MergeGroupRepository,
	settings repository.SettingsRepository,
	fp fingerprinter,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		api:      api,
		orders:   orders,
		groups:   groups,
		settings: settings,
		fp:       fp,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute runs the full merge pipeline for the group. manual marks an
// operator-approved run, which always completes the draft regardless of the
// shop's auto-complete setting. Any stage failure marks the group failed
// with the stage's error message and returns that error.
func (x *Executor) Execute(ctx context.Context, group model.MergeGroup, manual bool) (*Result, error) {
	started := x.now()
	result, err := x.run(ctx, group, manual)
	if err != nil {
		x.logger.Error("merge failed",
			slog.String("shop", group.Shop),
			slog.String("group", group.ID),
			slog.String("error", err.Error()),
		)
		metrics.MergesFailed.Inc()
		if ferr := x.groups.SetFailed(ctx, group.ID, err.Error()); ferr != nil {
			x.logger.Error("marking group failed",
				slog.String("group", group.ID), slog.String("error", ferr.Error()))
		}
		return nil, err
	}

	metrics.MergeDuration.Observe(x.now().Sub(started).Seconds())
	metrics.MergesCompleted.Inc()
	x.logger.Info("merge finished",
		slog.String("shop", group.Shop),
		slog.String("group", group.ID),
		slog.String("draft", result.DraftID),
		slog.String("order", result.NewOrderID),
		slog.Bool("completed", result.Completed),
	)
	return result, nil
}

func (x *Executor) run(ctx context.Context, group model.MergeGroup, manual bool) (*Result, error) {
	orders, err := x.api.FetchOrders(ctx, group.Shop, group.OriginalIDs)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domainErrors.UnmergeableError{Reason: "no orders found to merge"}
	}

	valid := make([]model.SourceOrder, 0, len(orders))
	for _, o := range orders {
		if !o.IsCancelled() {
			valid = append(valid, o)
		}
	}
	if len(valid) == 0 {
		return nil, domainErrors.UnmergeableError{Reason: "all orders are cancelled - cannot merge"}
	}
	if len(valid) == 1 {
		return nil, domainErrors.UnmergeableError{Reason: "only one valid order found after excluding cancelled orders - cannot merge"}
	}

	items := aggregateLineItems(valid)
	if len(items) == 0 {
		return nil, domainErrors.UnmergeableError{Reason: "no line items found to merge"}
	}

	// The newest order wins ties on contact details and shipping address.
	base := valid[len(valid)-1]
	provenance := provenanceOf(valid)

	input := orderapi.NewDraftInput(
		base.Email,
		draftAddress(base.ShippingAddress),
		items,
		[]string{model.TagMerged},
		[]model.Attribute{{Key: model.AttrMergedFrom, Value: provenance}},
	)

	draftID := group.DraftID
	if draftID == "" {
		draftID, err = x.api.CreateDraft(ctx, group.Shop, input)
		if err != nil {
			return nil, err
		}
	}
	if err := x.groups.SetDraft(ctx, group.ID, draftID); err != nil {
		return nil, err
	}

	var newOrderID string
	if manual || x.autoComplete(ctx, group.Shop) {
		newOrderID, err = x.api.CompleteDraft(ctx, group.Shop, draftID)
		if err != nil {
			return nil, err
		}
	}

	mergedInto := newOrderID
	if mergedInto == "" {
		mergedInto = draftID
	}
	memberNames := joinCapped(namesOf(valid))
	for _, o := range valid {
		if err := x.api.TagOrder(ctx, group.Shop, o.ID, sourceTags(o), sourceAttributes(o, mergedInto, memberNames)); err != nil {
			return nil, err
		}
	}

	if newOrderID != "" {
		if err := x.groups.SetCompleted(ctx, group.ID, newOrderID); err != nil {
			return nil, err
		}
	}

	if err := x.indexMergedOrder(ctx, group.Shop, base, draftID, newOrderID); err != nil {
		return nil, err
	}

	return &Result{
		GroupID:    group.ID,
		DraftID:    draftID,
		NewOrderID: newOrderID,
		Completed:  newOrderID != "",
	}, nil
}

func (x *Executor) autoComplete(ctx context.Context, shop string) bool {
	rules, err := x.settings.Get(ctx, shop)
	if err != nil {
		x.logger.Error("loading settings for auto-complete",
			slog.String("shop", shop), slog.String("error", err.Error()))
		return false
	}
	return rules.AutoCompleteDraft
}

// indexMergedOrder records the synthesized order so it participates in
// future duplicate detection like any inbound order would.
func (x *Executor) indexMergedOrder(ctx context.Context, shop string, base model.SourceOrder, draftID, newOrderID string) error {
	id := newOrderID
	name := "#" + idTail(newOrderID)
	if newOrderID == "" {
		id = draftID
		name = "Draft-" + idTail(draftID)
	}

	emailFP, _ := x.fp.Email(shop, base.Email)
	return x.orders.Upsert(ctx, model.OrderRecord{
		ID:                 id,
		Shop:               shop,
		Name:               name,
		CreatedAt:          x.now(),
		AddressFingerprint: x.fp.Address(shop, base.ShippingAddress),
		EmailFingerprint:   emailFP,
		Status:             model.OrderStatusMerged,
	})
}

// aggregateLineItems combines quantities across the valid members. Items are
// keyed by variant id, falling back to title for custom items, and keep the
// order of first appearance.
func aggregateLineItems(orders []model.SourceOrder) []orderapi.DraftLineItem {
	type agg struct {
		item  model.LineItem
		count int
	}
	index := make(map[string]*agg)
	var keys []string

	for _, o := range orders {
		for _, item := range o.LineItems {
			key := item.VariantID
			if key == "" {
				key = item.Title
			}
			if key == "" {
				continue
			}
			if existing, ok := index[key]; ok {
				existing.count += item.Quantity
				continue
			}
			index[key] = &agg{item: item, count: item.Quantity}
			keys = append(keys, key)
		}
	}

	result := make([]orderapi.DraftLineItem, 0, len(keys))
	for _, key := range keys {
		a := index[key]
		result = append(result, orderapi.DraftLineItem{
			VariantID: a.item.VariantID,
			Title:     a.item.Title,
			Quantity:  a.count,
		})
	}
	return result
}

// provenanceOf joins the members' display names, reusing an existing
// MergedFrom chain so repeated merges stay traceable.
func provenanceOf(orders []model.SourceOrder) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		part := o.Name
		if chain, ok := o.AttributeValue(model.AttrMergedFrom); ok && chain != "" {
			part = chain
		}
		parts = append(parts, part)
	}
	return joinCapped(parts)
}

// joinCapped comma-joins parts, dropping those that would push the value
// past the cap.
func joinCapped(parts []string) string {
	var kept []string
	total := 0
	for _, part := range parts {
		next := total + len(part)
		if len(kept) > 0 {
			next += 2
		}
		if next > maxProvenanceLen {
			break
		}
		kept = append(kept, part)
		total = next
	}
	return strings.Join(kept, ", ")
}

func namesOf(orders []model.SourceOrder) []string {
	names := make([]string, 0, len(orders))
	for _, o := range orders {
		names = append(names, o.Name)
	}
	return names
}

// sourceTags marks a consumed member as both replaced and merged, keeping
// whatever tags it already carried.
func sourceTags(o model.SourceOrder) []string {
	tags := make([]string, 0, len(o.Tags)+2)
	seen := make(map[string]bool, len(o.Tags)+2)
	for _, t := range append(append([]string{}, o.Tags...), model.TagReplaced, model.TagMerged) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// sourceAttributes points a consumed member at the order that replaced it and
// extends its MergedFrom chain with this merge's member names. Other
// attributes are preserved untouched.
func sourceAttributes(o model.SourceOrder, mergedInto, memberNames string) []model.Attribute {
	attrs := make([]model.Attribute, 0, len(o.Attributes)+2)
	for _, a := range o.Attributes {
		if a.Key == model.AttrMergedInto || a.Key == model.AttrMergedFrom {
			continue
		}
		attrs = append(attrs, a)
	}
	chain := memberNames
	if prior, ok := o.AttributeValue(model.AttrMergedFrom); ok && prior != "" {
		if combined := prior + ", " + memberNames; len(combined) <= maxProvenanceLen {
			chain = combined
		}
	}
	return append(attrs,
		model.Attribute{Key: model.AttrMergedInto, Value: mergedInto},
		model.Attribute{Key: model.AttrMergedFrom, Value: chain},
	)
}

func draftAddress(addr model.Address) *orderapi.DraftAddress {
	first, last := splitName(addr.Name)
	return &orderapi.DraftAddress{
		Address1:    addr.Address1,
		Address2:    addr.Address2,
		City:        addr.City,
		Province:    addr.Province,
		Zip:         addr.Zip,
		CountryCode: addr.Country,
		FirstName:   first,
		LastName:    last,
	}
}

// splitName breaks a full shipping name into first/last on the first space.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// idTail returns the last segment of a slash-separated id, so global
// identifiers render as short display names.
func idTail(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
