package di

import (
	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/adapter/orderapi"
	"github.com/reno-apps/ordermerge/internal/app"
	"github.com/reno-apps/ordermerge/internal/config"
	"github.com/reno-apps/ordermerge/internal/fingerprint"
	"github.com/reno-apps/ordermerge/internal/logger"
	"github.com/reno-apps/ordermerge/internal/matching"
	"github.com/reno-apps/ordermerge/internal/merge"
	"github.com/reno-apps/ordermerge/internal/server/http/handlers"
	"github.com/reno-apps/ordermerge/internal/server/http/router"
	"github.com/reno-apps/ordermerge/internal/storage/postgres"
	"github.com/reno-apps/ordermerge/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		fingerprint.Module,
		postgres.Module,
		orderapi.Module,
		matching.Module,
		merge.Module,
		usecase.Module,
		fx.Provide(
			func(f *app.MergeFacade) handlers.MergeFacade { return f },
			func(s *postgres.Storage) router.Pinger { return s },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
