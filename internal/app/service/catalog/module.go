package catalog

import "go.uber.org/fx"

// Module exposes the tier catalog service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
