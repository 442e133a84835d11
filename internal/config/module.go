package config

import "go.uber.org/fx"

// Module provides the parsed service configuration to the fx container.
var Module = fx.Provide(Load)
