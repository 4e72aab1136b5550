package hooks

import (
	"context"
	"encoding/json"

	"github.com/railzwaylabs/plansync/internal/event"
	"github.com/railzwaylabs/plansync/internal/plan/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("hooks",
	fx.Provide(
		event.AsSubscription(NewAuditLog),
		event.AsSubscription(NewPlanDeletedWatch),
		event.AsSubscription(NewPlanUpdatedWatch),
	),
)

// NewAuditLog logs every delivered event.
func NewAuditLog(log *zap.Logger) event.Subscription {
	log = log.Named("hooks.audit")
	return event.Subscription{
		Type: event.AnyEvent,
		Callback: func(ctx context.Context, _ any, evt *event.Event) error {
			log.Info("stripe event received",
				zap.String("event_id", evt.ID),
				zap.String("event_type", evt.Type),
				zap.Bool("livemode", evt.Livemode))
			return nil
		},
	}
}

type planObject struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// NewPlanDeletedWatch warns when a declared plan is deleted remotely; the
// next sync run will recreate it.
func NewPlanDeletedWatch(log *zap.Logger, reg *registry.Registry) event.Subscription {
	log = log.Named("hooks.plan_drift")
	return event.Subscription{
		Type: "plan.deleted",
		Callback: func(ctx context.Context, _ any, evt *event.Event) error {
			var obj planObject
			if err := json.Unmarshal(evt.Object, &obj); err != nil {
				return err
			}
			if _, ok := reg.FindByKey(obj.ID); ok {
				log.Warn("declared plan deleted remotely", zap.String("plan_id", obj.ID), zap.String("event_id", evt.ID))
			}
			return nil
		},
	}
}

// NewPlanUpdatedWatch warns when a declared plan's active flag drifts.
func NewPlanUpdatedWatch(log *zap.Logger, reg *registry.Registry) event.Subscription {
	log = log.Named("hooks.plan_drift")
	return event.Subscription{
		Type: "plan.updated",
		Callback: func(ctx context.Context, _ any, evt *event.Event) error {
			var obj planObject
			if err := json.Unmarshal(evt.Object, &obj); err != nil {
				return err
			}
			plan, ok := reg.FindByKey(obj.ID)
			if !ok {
				return nil
			}
			if plan.Active() != obj.Active {
				log.Warn("declared plan active flag drifted",
					zap.String("plan_id", obj.ID),
					zap.Bool("declared", plan.Active()),
					zap.Bool("remote", obj.Active))
			}
			return nil
		},
	}
}
