package ledger

import (
	"context"

	"github.com/railzwaylabs/plansync/internal/plan/reconcile"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.ledger",
	fx.Provide(
		NewRepository,
		func(r *Repository) reconcile.Recorder { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *Repository) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return r.Migrate(ctx)
			},
		})
	}),
)
