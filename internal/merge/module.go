package merge

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/adapter/orderapi"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
)

// Module exposes the merge executor to the fx graph.
var Module = fx.Provide(newExecutor)

type executorParams struct {
	fx.In

	API          orderapi.Client
	Orders       repository.OrderIndexRepository
	Groups       repository.MergeGroupRepository
	Settings     repository.SettingsRepository
	Fingerprints *fingerprint.Generator
	Logger       *slog.Logger
}

func newExecutor(p executorParams) *Executor {
	return NewExecutor(p.API, p.Orders, p.Groups, p.Settings, p.Fingerprints, p.Logger)
}
