package billing

import "go.uber.org/fx"

// Module exposes the billing provider client via Fx.
var Module = fx.Options(
	fx.Provide(func(c *StripeClient) Client { return c }),
	fx.Provide(NewStripeClient),
)
