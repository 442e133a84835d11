package matching

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
)

// Module exposes the matching engine to the fx graph.
var Module = fx.Provide(newEngine)

type engineParams struct {
	fx.In

	Fingerprints *fingerprint.Generator
	Orders       repository.OrderIndexRepository
	Groups       repository.MergeGroupRepository
	Settings     repository.SettingsRepository
	Logger       *slog.Logger
}

func newEngine(p engineParams) *Engine {
	return NewEngine(p.Fingerprints, p.Orders, p.Groups, p.Settings, p.Logger)
}
