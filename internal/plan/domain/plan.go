package domain

type Tier struct {
	Amount     int64
	FlatAmount *int64

	// UpTo is nil for the unbounded last tier.
	UpTo *int64
}

// Plan is a validated, immutable plan declaration. Only Validate builds one.
type Plan struct {
	key        string
	identifier string

	name                string
	productID           string
	amount              *int64
	currency            string
	interval            Interval
	intervalCount       int64
	trialPeriodDays     int64
	usageType           *UsageType
	aggregateUsage      *AggregateUsage
	billingScheme       *BillingScheme
	tiers               []Tier
	tiersMode           *TiersMode
	statementDescriptor string
	active              bool
	nickname            string
	metadata            map[string]any
}

// Key is the declared key; it doubles as the remote plan id.
func (p *Plan) Key() string { return p.key }

// Identifier is the upper-cased registry name.
func (p *Plan) Identifier() string { return p.identifier }

func (p *Plan) Name() string                { return p.name }
func (p *Plan) ProductID() string           { return p.productID }
func (p *Plan) Currency() string            { return p.currency }
func (p *Plan) Interval() Interval          { return p.interval }
func (p *Plan) IntervalCount() int64        { return p.intervalCount }
func (p *Plan) TrialPeriodDays() int64      { return p.trialPeriodDays }
func (p *Plan) StatementDescriptor() string { return p.statementDescriptor }
func (p *Plan) Active() bool                { return p.active }
func (p *Plan) Nickname() string            { return p.nickname }

func (p *Plan) Amount() (int64, bool) {
	if p.amount == nil {
		return 0, false
	}
	return *p.amount, true
}

// UsageType resolves to licensed when none was declared.
func (p *Plan) UsageType() UsageType {
	if p.usageType == nil {
		return UsageTypeLicensed
	}
	return *p.usageType
}

// BillingScheme resolves to per_unit when none was declared.
func (p *Plan) BillingScheme() BillingScheme {
	if p.billingScheme == nil {
		return BillingSchemePerUnit
	}
	return *p.billingScheme
}

// DeclaredUsageType returns the usage type only if it was set explicitly.
func (p *Plan) DeclaredUsageType() (UsageType, bool) {
	if p.usageType == nil {
		return "", false
	}
	return *p.usageType, true
}

func (p *Plan) DeclaredBillingScheme() (BillingScheme, bool) {
	if p.billingScheme == nil {
		return "", false
	}
	return *p.billingScheme, true
}

func (p *Plan) AggregateUsage() (AggregateUsage, bool) {
	if p.aggregateUsage == nil {
		return "", false
	}
	return *p.aggregateUsage, true
}

func (p *Plan) TiersMode() (TiersMode, bool) {
	if p.tiersMode == nil {
		return "", false
	}
	return *p.tiersMode, true
}

func (p *Plan) Tiers() []Tier {
	if p.tiers == nil {
		return nil
	}
	out := make([]Tier, len(p.tiers))
	for i, t := range p.tiers {
		out[i] = Tier{Amount: t.Amount, FlatAmount: cloneInt(t.FlatAmount), UpTo: cloneInt(t.UpTo)}
	}
	return out
}

func (p *Plan) Metadata() map[string]any {
	if p.metadata == nil {
		return nil
	}
	return cloneMetadata(p.metadata)
}

// cloneMetadata deep-copies the nested maps and lists a YAML decoder produces.
func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMetadata(t)
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
