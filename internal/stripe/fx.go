package stripe

import (
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/plan/reconcile"
	"go.uber.org/fx"
)

var Module = fx.Module("stripe",
	fx.Provide(
		func(cfg config.Config) *Client { return NewClient(cfg.Stripe) },
		func(c *Client) reconcile.RemoteAPI { return c },
		func(cfg config.Config) *WebhookVerifier {
			return NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)
		},
	),
)
