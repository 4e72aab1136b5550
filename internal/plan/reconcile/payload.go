package reconcile

import "github.com/railzwaylabs/plansync/internal/plan/domain"

// Payload is the create request body. Keys are the provider's field names;
// fields the plan does not carry are left out.
type Payload map[string]any

func BuildPayload(version APIVersion, plan *domain.Plan) Payload {
	p := Payload{
		"id":       plan.Key(),
		"currency": plan.Currency(),
	}

	if version.SupportsProducts() {
		if productID := plan.ProductID(); productID != "" {
			p["product"] = productID
		} else {
			// statement_descriptor is sent even when unset.
			var descriptor any
			if plan.StatementDescriptor() != "" {
				descriptor = plan.StatementDescriptor()
			}
			p["product"] = map[string]any{
				"name":                 plan.Name(),
				"statement_descriptor": descriptor,
			}
		}
	} else if name := plan.Name(); name != "" {
		p["name"] = name
	}

	if amount, ok := plan.Amount(); ok {
		p["amount"] = amount
	}
	p["interval"] = string(plan.Interval())
	p["interval_count"] = plan.IntervalCount()
	p["trial_period_days"] = plan.TrialPeriodDays()

	if v, ok := plan.DeclaredUsageType(); ok {
		p["usage_type"] = string(v)
	}
	if v, ok := plan.AggregateUsage(); ok {
		p["aggregate_usage"] = string(v)
	}
	if v, ok := plan.DeclaredBillingScheme(); ok {
		p["billing_scheme"] = string(v)
	}
	if tiers := plan.Tiers(); len(tiers) > 0 {
		p["tiers"] = tierPayload(tiers)
	}
	if v, ok := plan.TiersMode(); ok {
		p["tiers_mode"] = string(v)
	}
	return p
}

func tierPayload(tiers []domain.Tier) []map[string]any {
	out := make([]map[string]any, len(tiers))
	for i, t := range tiers {
		m := map[string]any{"amount": t.Amount}
		if t.UpTo != nil {
			m["up_to"] = *t.UpTo
		} else {
			m["up_to"] = nil
		}
		if t.FlatAmount != nil {
			m["flat_amount"] = *t.FlatAmount
		}
		out[i] = m
	}
	return out
}
