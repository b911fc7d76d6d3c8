package subscription

import "go.uber.org/fx"

// Module exposes the subscription lifecycle service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Manager { return s }),
)
