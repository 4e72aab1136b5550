package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"golang.org/x/text/currency"
)

const MaxStatementDescriptorLength = 22

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ResolveIdentifier returns the registry identifier for a draft: the
// constant name override if present, else the key, upper-cased.
func ResolveIdentifier(d *Draft) string {
	raw := d.ConstantName
	if strings.TrimSpace(raw) == "" {
		raw = d.Key
	}
	return NormalizeIdentifier(raw)
}

func NormalizeIdentifier(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate checks every rule against d and returns the frozen Plan, or a
// *ConfigurationError listing all violations. It never stops at the first one.
func Validate(d *Draft) (*Plan, error) {
	var violations []Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	violations = append(violations, d.rejected...)

	identifier := ResolveIdentifier(d)
	if !identifierPattern.MatchString(identifier) {
		if hint := suggestIdentifier(identifier); hint != "" {
			add("constant_name", "%q is not a valid identifier, try %q", identifier, hint)
		} else {
			add("constant_name", "%q is not a valid identifier", identifier)
		}
	}

	name := strings.TrimSpace(d.Name)
	productID := strings.TrimSpace(d.ProductID)
	switch {
	case name != "" && productID != "":
		add("name", "name and product_id are mutually exclusive")
	case name == "" && productID == "":
		add("name", "one of name or product_id is required")
	}

	plan := &Plan{
		key:                 d.Key,
		identifier:          identifier,
		name:                name,
		productID:           productID,
		intervalCount:       d.IntervalCount,
		trialPeriodDays:     d.TrialPeriodDays,
		statementDescriptor: d.StatementDescriptor,
		active:              d.Active,
		nickname:            d.Nickname,
		metadata:            cloneMetadata(d.Metadata),
	}

	code := strings.TrimSpace(d.Currency)
	if _, err := currency.ParseISO(strings.ToUpper(code)); err != nil {
		add("currency", "%q is not an ISO 4217 currency code", d.Currency)
	}
	plan.currency = strings.ToLower(code)

	if d.Interval == "" {
		add("interval", "is required")
	} else if v, err := ParseInterval(d.Interval); err != nil {
		add("interval", "%v", err)
	} else {
		plan.interval = v
	}

	if d.UsageType != "" {
		if v, err := ParseUsageType(d.UsageType); err != nil {
			add("usage_type", "%v", err)
		} else {
			plan.usageType = &v
		}
	}

	if d.AggregateUsage != "" {
		if v, err := ParseAggregateUsage(d.AggregateUsage); err != nil {
			add("aggregate_usage", "%v", err)
		} else {
			plan.aggregateUsage = &v
		}
		if plan.UsageType() != UsageTypeMetered {
			add("aggregate_usage", "is only allowed when usage_type is metered")
		}
	}

	if d.BillingScheme != "" {
		if v, err := ParseBillingScheme(d.BillingScheme); err != nil {
			add("billing_scheme", "%v", err)
		} else {
			plan.billingScheme = &v
		}
	}

	if d.TiersMode != "" {
		if v, err := ParseTiersMode(d.TiersMode); err != nil {
			add("tiers_mode", "%v", err)
		} else {
			plan.tiersMode = &v
		}
	}

	tiered := d.BillingScheme == string(BillingSchemeTiered)
	if tiered {
		if len(d.Tiers) == 0 {
			add("tiers", "are required when billing_scheme is tiered")
		}
		if d.TiersMode == "" {
			add("tiers_mode", "is required when billing_scheme is tiered")
		}
		violations = append(violations, validateTiers(d.Tiers)...)
		plan.tiers = freezeTiers(d.Tiers)
	} else if len(d.Tiers) > 0 && plan.BillingScheme() == BillingSchemePerUnit {
		add("tiers", "are not allowed when billing_scheme is per_unit")
	}

	if d.Amount == nil {
		if !tiered {
			add("amount", "is required unless billing_scheme is tiered")
		}
	} else {
		if *d.Amount < 0 {
			add("amount", "must not be negative")
		}
		amount := *d.Amount
		plan.amount = &amount
	}

	if n := utf8.RuneCountInString(d.StatementDescriptor); n > MaxStatementDescriptorLength {
		add("statement_descriptor", "must be at most %d characters, got %d", MaxStatementDescriptorLength, n)
	}
	if d.IntervalCount < 1 {
		add("interval_count", "must be at least 1")
	}
	if d.TrialPeriodDays < 0 {
		add("trial_period_days", "must not be negative")
	}

	if len(violations) > 0 {
		return nil, &ConfigurationError{Key: d.Key, Violations: violations}
	}
	return plan, nil
}

func validateTiers(tiers []TierDraft) []Violation {
	var out []Violation
	var prev *int64
	for i, t := range tiers {
		field := fmt.Sprintf("tiers[%d]", i)
		if t.Amount < 0 {
			out = append(out, Violation{Field: field, Message: "amount must not be negative"})
		}
		if t.FlatAmount != nil && *t.FlatAmount < 0 {
			out = append(out, Violation{Field: field, Message: "flat_amount must not be negative"})
		}
		last := i == len(tiers)-1
		if t.UpTo == nil {
			if !last {
				out = append(out, Violation{Field: field, Message: "up_to is required on all but the last tier"})
			}
			continue
		}
		if prev != nil && *t.UpTo <= *prev {
			out = append(out, Violation{Field: field, Message: "up_to must increase from the previous tier"})
		}
		prev = t.UpTo
	}
	return out
}

func freezeTiers(tiers []TierDraft) []Tier {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		out[i] = Tier{Amount: t.Amount, FlatAmount: cloneInt(t.FlatAmount), UpTo: cloneInt(t.UpTo)}
	}
	return out
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func suggestIdentifier(raw string) string {
	s := strings.ToUpper(strings.ReplaceAll(slug.Make(raw), "-", "_"))
	if s == "" {
		return ""
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	if !identifierPattern.MatchString(s) {
		return ""
	}
	return s
}
