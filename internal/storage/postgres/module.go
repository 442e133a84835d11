package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/config"
	"github.com/reno-apps/ordermerge/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.OrderIndexRepository { return s.OrderIndex() },
		func(s *Storage) repository.MergeGroupRepository { return s.MergeGroups() },
		func(s *Storage) repository.SettingsRepository { return s.Settings() },
		func(s *Storage) repository.EventRepository { return s.Events() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
