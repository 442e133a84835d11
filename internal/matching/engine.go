package matching

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
	"github.com/reno-apps/ordermerge/internal/metrics"
)

// Engine consumes one inbound order event at a time: it indexes the order,
// searches the window for duplicate candidates and creates a merge group
// when the configured rules match.
type Engine struct {
	fingerprints *fingerprint.Generator
	orders       repository.OrderIndexRepository
	groups       repository.MergeGroupRepository
	settings     repository.SettingsRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine constructs the matching engine.
func NewEngine(
	fingerprints *fingerprint.Generator,
	orders repository.OrderIndexRepository,
	groups repository.MergeGroupRepository,
	settings repository.SettingsRepository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		fingerprints: fingerprints,
		orders:       orders,
		groups:       groups,
		settings:     settings,
		logger:       logger,
		now:          time.Now,
	}
}

// Process handles one order-creation event. It returns the created merge
// group, or nil when the event produced no group. Guarded events (cancelled
// orders, merge outputs) are skipped without error: the engine never fails
// the caller for a legitimately-shaped but uninteresting event.
func (e *Engine) Process(ctx context.Context, shop string, event model.OrderEvent) (*model.MergeGroup, error) {
	metrics.EventsReceived.Inc()

	if event.Cancelled {
		e.logger.Info("ignoring cancelled order",
			slog.String("shop", shop), slog.String("order", event.Name))
		metrics.EventsSkipped.WithLabelValues("cancelled").Inc()
		return nil, nil
	}

	addressFP := e.fingerprints.Address(shop, event.ShippingAddress)
	emailFP, _ := e.fingerprints.Email(shop, event.Email)

	// A merge output is indexed so it stays a valid candidate for future
	// duplicates, but it must never seed a new group itself.
	if event.IsMergeOutput() {
		e.logger.Info("ignoring merge output order",
			slog.String("shop", shop), slog.String("order", event.Name))
		metrics.EventsSkipped.WithLabelValues("merge_output").Inc()
		return nil, e.orders.Upsert(ctx, model.OrderRecord{
			ID:                 event.ID,
			Shop:               shop,
			Name:               event.Name,
			CreatedAt:          event.CreatedAt,
			AddressFingerprint: addressFP,
			EmailFingerprint:   emailFP,
			Status:             model.OrderStatusMerged,
		})
	}

	rules, err := e.settings.Get(ctx, shop)
	if err != nil {
		return nil, err
	}

	if err := e.orders.Upsert(ctx, model.OrderRecord{
		ID:                 event.ID,
		Shop:               shop,
		Name:               event.Name,
		CreatedAt:          event.CreatedAt,
		AddressFingerprint: addressFP,
		EmailFingerprint:   emailFP,
		Status:             model.OrderStatusOpen,
	}); err != nil {
		return nil, err
	}

	since := e.now().Add(-rules.Window())
	recent, err := e.orders.FindCandidates(ctx, shop, addressFP, since)
	if err != nil {
		return nil, err
	}

	matched := make([]model.OrderRecord, 0, len(recent))
	for _, candidate := range recent {
		if qualifies(candidate, event, addressFP, emailFP, *rules) {
			matched = append(matched, candidate)
		}
	}

	if len(matched) < 2 {
		return nil, nil
	}

	ids := make([]string, 0, len(matched))
	for _, m := range matched {
		ids = append(ids, m.ID)
	}

	group := &model.MergeGroup{
		ID:            uuid.NewString(),
		Shop:          shop,
		WindowMinutes: rules.WindowMinutes,
		OriginalIDs:   ids,
		Reason:        reason(*rules),
	}

	if err := e.groups.Create(ctx, group); err != nil {
		if errors.Is(err, domainErrors.ErrCandidateConflict) {
			// A concurrent detection claimed part of this set first.
			e.logger.Warn("merge group aborted on candidate conflict",
				slog.String("shop", shop), slog.Any("orders", ids))
			metrics.CandidateConflicts.Inc()
			return nil, nil
		}
		return nil, err
	}

	e.logger.Info("merge group created",
		slog.String("shop", shop),
		slog.String("group", group.ID),
		slog.String("reason", string(group.Reason)),
		slog.Any("orders", ids),
	)
	metrics.GroupsCreated.WithLabelValues(string(group.Reason)).Inc()
	return group, nil
}

// qualifies applies the configured rule combination plus pairwise time
// containment. Replaced candidates are owned by another in-flight group;
// merged ones stay eligible so a synthesized order can merge again.
func qualifies(candidate model.OrderRecord, event model.OrderEvent, addressFP, emailFP string, rules model.MatchRules) bool {
	if candidate.Status == model.OrderStatusReplaced {
		return false
	}

	byAddr := rules.ByAddress && candidate.AddressFingerprint == addressFP
	byEmail := rules.ByEmail && emailFP != "" && candidate.EmailFingerprint != "" && candidate.EmailFingerprint == emailFP

	var logic bool
	if rules.RequireBoth {
		logic = byAddr && byEmail
	} else {
		logic = byAddr || byEmail
	}

	return logic && within(candidate.CreatedAt, event.CreatedAt, rules.Window())
}

func within(a, b time.Time, window time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}

func reason(rules model.MatchRules) model.MergeReason {
	switch {
	case rules.RequireBoth && rules.ByEmail:
		return model.MergeReasonBoth
	case rules.ByEmail:
		return model.MergeReasonEmail
	default:
		return model.MergeReasonAddress
	}
}
