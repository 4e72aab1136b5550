package registry

import (
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("plan.registry",
	fx.Provide(Provide),
)

func Provide(cfg config.Config, log *zap.Logger) (*Registry, error) {
	policy, err := ParsePolicy(cfg.Plans.RedeclarePolicy)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Defaults: domain.Defaults{Currency: cfg.Plans.DefaultCurrency},
		Policy:   policy,
		Log:      log,
	}), nil
}
