package event

import "go.uber.org/fx"

var Module = fx.Module("event",
	fx.Provide(DefaultCatalog),
	fx.Provide(NewDispatcher),
	fx.Invoke(RegisterSubscriptions),
)

// Subscription lets packages contribute callbacks through the
// "event.subscriptions" fx group.
type Subscription struct {
	Type     string
	Critical bool
	Callback Callback
}

// AsSubscription annotates a constructor so its Subscription joins the group.
func AsSubscription(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"event.subscriptions"`))
}

type SubscriptionParams struct {
	fx.In

	Dispatcher    *Dispatcher
	Subscriptions []Subscription `group:"event.subscriptions"`
}

// RegisterSubscriptions fails startup when any subscription names an unknown type.
func RegisterSubscriptions(p SubscriptionParams) error {
	for _, sub := range p.Subscriptions {
		var err error
		if sub.Critical {
			err = p.Dispatcher.SubscribeCritical(sub.Type, sub.Callback)
		} else {
			err = p.Dispatcher.Subscribe(sub.Type, sub.Callback)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
