package fingerprint

import (
	"go.uber.org/fx"

	"github.com/reno-apps/ordermerge/internal/config"
)

// Module wires fingerprint generation for dependency injection.
var Module = fx.Provide(newGenerator)

type generatorParams struct {
	fx.In

	Config *config.Config
}

func newGenerator(p generatorParams) *Generator {
	return NewGenerator(p.Config.HashSalt)
}
