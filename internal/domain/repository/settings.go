package repository

import (
	"context"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// SettingsRepository stores per-shop matching policy.
type SettingsRepository interface {
	// Get returns stored rules, creating defaults on first access.
	Get(ctx context.Context, shop string) (*model.MatchRules, error)
	Update(ctx context.Context, rules model.MatchRules) (*model.MatchRules, error)
}
