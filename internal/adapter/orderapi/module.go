package orderapi

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/config"
)

// Module exposes order API client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.OrderAPIAddress, p.Config.OrderAPIToken, p.Logger)
}
