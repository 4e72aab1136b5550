package reconcile

import "go.uber.org/fx"

var Module = fx.Module("plan.reconcile",
	fx.Provide(New),
)
