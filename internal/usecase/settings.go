package usecase

import (
	"context"
	"fmt"

	domainErrors "github.com/reno-apps/ordermerge/internal/domain/errors"
	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
)

// SettingsUseCase encapsulates per-shop matching configuration.
type SettingsUseCase struct {
	settings repository.SettingsRepository
}

// NewSettingsUseCase constructs SettingsUseCase.
func NewSettingsUseCase(settings repository.SettingsRepository) *SettingsUseCase {
	return &SettingsUseCase{settings: settings}
}

// Get returns the shop's rules, creating defaults on first access.
func (u *SettingsUseCase) Get(ctx context.Context, shop string) (*model.MatchRules, error) {
	if shop == "" {
		return nil, fmt.Errorf("%w: shop is required", domainErrors.ErrValidation)
	}
	return u.settings.Get(ctx, shop)
}

// Update validates and persists new rules for the shop. The detection window
// is bounded so a typo can neither disable matching nor scan days of orders.
func (u *SettingsUseCase) Update(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error) {
	if rules.Shop == "" {
		return nil, fmt.Errorf("%w: shop is required", domainErrors.ErrValidation)
	}
	if rules.WindowMinutes < model.MinWindowMinutes || rules.WindowMinutes > model.MaxWindowMinutes {
		return nil, fmt.Errorf("%w: window must be between %d and %d minutes",
			domainErrors.ErrValidation, model.MinWindowMinutes, model.MaxWindowMinutes)
	}
	if !rules.ByAddress && !rules.ByEmail {
		return nil, fmt.Errorf("%w: at least one matching rule must be enabled", domainErrors.ErrValidation)
	}
	if rules.RequireBoth && (!rules.ByAddress || !rules.ByEmail) {
		return nil, fmt.Errorf("%w: requiring both rules needs both enabled", domainErrors.ErrValidation)
	}
	return u.settings.Update(ctx, rules)
}
