package plan

import (
	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/observability"
	"github.com/railzwaylabs/plansync/internal/plan/loader"
	"github.com/railzwaylabs/plansync/internal/plan/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("plan",
	registry.Module,
	fx.Invoke(LoadDeclarations),
)

type LoadParams struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Registry *registry.Registry
	Metrics  *observability.Metrics `optional:"true"`
}

// LoadDeclarations populates the registry from the configured declaration
// file before anything reads from it.
func LoadDeclarations(p LoadParams) error {
	log := p.Log.Named("plan.loader")
	plans, err := loader.LoadFile(p.Cfg.Plans.File, p.Registry)
	if err != nil {
		log.Error("plan declarations rejected", zap.String("file", p.Cfg.Plans.File), zap.Error(err))
		return err
	}
	if p.Metrics != nil {
		p.Metrics.DeclaredPlans.Set(float64(p.Registry.Len()))
	}
	log.Info("plan declarations loaded", zap.String("file", p.Cfg.Plans.File), zap.Int("count", len(plans)))
	return nil
}
