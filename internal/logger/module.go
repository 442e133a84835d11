package logger

import "go.uber.org/fx"

// Module provides the service logger to the fx container.
var Module = fx.Provide(New)
