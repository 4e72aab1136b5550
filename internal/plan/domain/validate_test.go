package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft(key string) *domain.Draft {
	d := domain.NewDraft(key, domain.Defaults{})
	d.Name = "Acme as a service"
	d.Amount = domain.Int64(999)
	d.Interval = "month"
	return d
}

func requireViolation(t *testing.T, err error, field string) *domain.ConfigurationError {
	t.Helper()
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
	assert.True(t, cfgErr.Has(field), "expected violation on %q, got %v", field, cfgErr.Violations)
	return cfgErr
}

func TestNewDraft_Defaults(t *testing.T) {
	d := domain.NewDraft("gold", domain.Defaults{})
	assert.Equal(t, "usd", d.Currency)
	assert.Equal(t, int64(1), d.IntervalCount)
	assert.Equal(t, int64(0), d.TrialPeriodDays)
	assert.True(t, d.Active)

	d = domain.NewDraft("gold", domain.Defaults{Currency: "cad"})
	assert.Equal(t, "cad", d.Currency)
}

func TestValidate_Freezes(t *testing.T) {
	d := validDraft("primo")
	d.IntervalCount = 3
	d.TrialPeriodDays = 30
	d.Metadata = map[string]any{"number_of_awesome_things": 5}
	d.StatementDescriptor = "Acme Primo"
	d.Nickname = "primo"
	d.UsageType = "metered"
	d.BillingScheme = "per_unit"
	d.AggregateUsage = "sum"
	d.TiersMode = "graduated"

	plan, err := domain.Validate(d)
	require.NoError(t, err)

	assert.Equal(t, "primo", plan.Key())
	assert.Equal(t, "PRIMO", plan.Identifier())
	assert.Equal(t, domain.IntervalMonth, plan.Interval())
	assert.Equal(t, int64(3), plan.IntervalCount())
	assert.Equal(t, domain.UsageTypeMetered, plan.UsageType())
	agg, ok := plan.AggregateUsage()
	assert.True(t, ok)
	assert.Equal(t, domain.AggregateUsageSum, agg)

	// Mutating the draft afterwards must not leak into the plan.
	d.Metadata["number_of_awesome_things"] = 6
	d.Name = "changed"
	assert.Equal(t, 5, plan.Metadata()["number_of_awesome_things"])
	assert.Equal(t, "Acme as a service", plan.Name())

	md := plan.Metadata()
	md["injected"] = true
	_, leaked := plan.Metadata()["injected"]
	assert.False(t, leaked)
}

func TestValidate_TiersCannotBeMutatedThroughAccessor(t *testing.T) {
	d := validDraft("tiered")
	d.Amount = nil
	d.BillingScheme = "tiered"
	d.TiersMode = "graduated"
	d.Tiers = []domain.TierDraft{
		{Amount: 0, FlatAmount: domain.Int64(10000), UpTo: domain.Int64(10)},
		{Amount: 1000},
	}

	plan, err := domain.Validate(d)
	require.NoError(t, err)

	tiers := plan.Tiers()
	*tiers[0].UpTo = 999
	*tiers[0].FlatAmount = 1
	tiers[1].Amount = 5

	again := plan.Tiers()
	assert.Equal(t, int64(10), *again[0].UpTo)
	assert.Equal(t, int64(10000), *again[0].FlatAmount)
	assert.Equal(t, int64(1000), again[1].Amount)
}

func TestValidate_NestedMetadataIsCopied(t *testing.T) {
	d := validDraft("primo")
	d.Metadata = map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{"a", map[string]any{"x": 1}},
	}

	plan, err := domain.Validate(d)
	require.NoError(t, err)

	d.Metadata["nested"].(map[string]any)["k"] = "mutated"
	d.Metadata["list"].([]any)[0] = "mutated"

	md := plan.Metadata()
	assert.Equal(t, "v", md["nested"].(map[string]any)["k"])
	assert.Equal(t, "a", md["list"].([]any)[0])

	md["nested"].(map[string]any)["k"] = "changed"
	md["list"].([]any)[1].(map[string]any)["x"] = 2
	again := plan.Metadata()
	assert.Equal(t, "v", again["nested"].(map[string]any)["k"])
	assert.Equal(t, 1, again["list"].([]any)[1].(map[string]any)["x"])
}

func TestValidate_ResolvedDefaults(t *testing.T) {
	plan, err := domain.Validate(validDraft("gold"))
	require.NoError(t, err)

	assert.Equal(t, domain.UsageTypeLicensed, plan.UsageType())
	assert.Equal(t, domain.BillingSchemePerUnit, plan.BillingScheme())
	_, declared := plan.DeclaredUsageType()
	assert.False(t, declared)
	_, declared = plan.DeclaredBillingScheme()
	assert.False(t, declared)
	assert.True(t, plan.Active())
}

func TestValidate_Intervals(t *testing.T) {
	for _, interval := range []string{"day", "week", "month", "year"} {
		t.Run(interval, func(t *testing.T) {
			d := validDraft(interval + "ly")
			d.Interval = interval
			plan, err := domain.Validate(d)
			require.NoError(t, err)
			assert.Equal(t, domain.Interval(interval), plan.Interval())
		})
	}

	for _, interval := range []string{"anything", "Month", "monthly", " month"} {
		t.Run("rejects "+interval, func(t *testing.T) {
			d := validDraft("broken")
			d.Interval = interval
			_, err := domain.Validate(d)
			requireViolation(t, err, "interval")
		})
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *domain.Draft)
		field  string
	}{
		{"missing interval", func(d *domain.Draft) { d.Interval = "" }, "interval"},
		{"missing amount", func(d *domain.Draft) { d.Amount = nil }, "amount"},
		{"missing amount with explicit per_unit", func(d *domain.Draft) { d.Amount = nil; d.BillingScheme = "per_unit" }, "amount"},
		{"negative amount", func(d *domain.Draft) { d.Amount = domain.Int64(-1) }, "amount"},
		{"name and product id", func(d *domain.Draft) { d.ProductID = "acme" }, "name"},
		{"neither name nor product id", func(d *domain.Draft) { d.Name = "" }, "name"},
		{"invalid usage type", func(d *domain.Draft) { d.UsageType = "whatever" }, "usage_type"},
		{"invalid aggregate usage", func(d *domain.Draft) { d.UsageType = "metered"; d.AggregateUsage = "whatever" }, "aggregate_usage"},
		{"aggregate usage while licensed", func(d *domain.Draft) { d.UsageType = "licensed"; d.AggregateUsage = "sum" }, "aggregate_usage"},
		{"aggregate usage with default usage type", func(d *domain.Draft) { d.AggregateUsage = "sum" }, "aggregate_usage"},
		{"invalid billing scheme", func(d *domain.Draft) { d.BillingScheme = "whatever" }, "billing_scheme"},
		{"invalid tiers mode", func(d *domain.Draft) { d.TiersMode = "whatever" }, "tiers_mode"},
		{"tiers with per_unit", func(d *domain.Draft) { d.Tiers = []domain.TierDraft{{Amount: 1}} }, "tiers"},
		{"tiered without tiers", func(d *domain.Draft) { d.BillingScheme = "tiered"; d.TiersMode = "graduated" }, "tiers"},
		{"tiered without tiers mode", func(d *domain.Draft) {
			d.BillingScheme = "tiered"
			d.Tiers = []domain.TierDraft{{Amount: 0}}
		}, "tiers_mode"},
		{"statement descriptor too long", func(d *domain.Draft) { d.StatementDescriptor = "ACME as a Service Monthly" }, "statement_descriptor"},
		{"interval count zero", func(d *domain.Draft) { d.IntervalCount = 0 }, "interval_count"},
		{"negative trial", func(d *domain.Draft) { d.TrialPeriodDays = -1 }, "trial_period_days"},
		{"unknown currency", func(d *domain.Draft) { d.Currency = "zzz" }, "currency"},
		{"invalid constant name", func(d *domain.Draft) { d.ConstantName = "PRIMO PLAN" }, "constant_name"},
		{"key starting with digit", func(d *domain.Draft) { d.Key = "9lives" }, "constant_name"},
		{"rejected by source", func(d *domain.Draft) { d.Reject("active", "must be a boolean") }, "active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft("broken")
			tt.mutate(d)
			_, err := domain.Validate(d)
			requireViolation(t, err, tt.field)
		})
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	d := domain.NewDraft("bad", domain.Defaults{})
	d.UsageType = "whatever"
	d.StatementDescriptor = strings.Repeat("x", 30)

	_, err := domain.Validate(d)
	cfgErr := requireViolation(t, err, "name")
	for _, field := range []string{"interval", "amount", "usage_type", "statement_descriptor"} {
		assert.True(t, cfgErr.Has(field), "missing violation for %s", field)
	}
	assert.Contains(t, err.Error(), `plan "bad"`)
}

func TestValidate_ProductIDOnly(t *testing.T) {
	d := validDraft("prodded")
	d.Name = ""
	d.ProductID = "acme"

	plan, err := domain.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, "acme", plan.ProductID())
	assert.Empty(t, plan.Name())
}

func TestValidate_ConstantName(t *testing.T) {
	d := validDraft("Primo Plan")
	d.ConstantName = "PRIMO_PLAN"
	plan, err := domain.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, "PRIMO_PLAN", plan.Identifier())
	assert.Equal(t, "Primo Plan", plan.Key())

	d = validDraft("Primo Plan")
	_, err = domain.Validate(d)
	cfgErr := requireViolation(t, err, "constant_name")
	assert.Contains(t, cfgErr.Error(), "PRIMO_PLAN")
}

func TestValidate_Tiers(t *testing.T) {
	d := validDraft("tiered")
	d.Amount = nil
	d.BillingScheme = "tiered"
	d.TiersMode = "graduated"
	d.Tiers = []domain.TierDraft{
		{Amount: 0, FlatAmount: domain.Int64(10000), UpTo: domain.Int64(10)},
		{Amount: 1000, FlatAmount: domain.Int64(0)},
	}

	plan, err := domain.Validate(d)
	require.NoError(t, err)
	tiers := plan.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, int64(10), *tiers[0].UpTo)
	assert.Nil(t, tiers[1].UpTo)
	mode, ok := plan.TiersMode()
	assert.True(t, ok)
	assert.Equal(t, domain.TiersModeGraduated, mode)

	*d.Tiers[0].UpTo = 99
	assert.Equal(t, int64(10), *plan.Tiers()[0].UpTo)

	t.Run("open tier before the last", func(t *testing.T) {
		d := validDraft("broken")
		d.BillingScheme = "tiered"
		d.TiersMode = "volume"
		d.Tiers = []domain.TierDraft{{Amount: 0}, {Amount: 1, UpTo: domain.Int64(5)}}
		_, err := domain.Validate(d)
		requireViolation(t, err, "tiers[0]")
	})

	t.Run("bounds must increase", func(t *testing.T) {
		d := validDraft("broken")
		d.BillingScheme = "tiered"
		d.TiersMode = "volume"
		d.Tiers = []domain.TierDraft{{UpTo: domain.Int64(10)}, {UpTo: domain.Int64(10)}, {}}
		_, err := domain.Validate(d)
		requireViolation(t, err, "tiers[1]")
	})
}

func TestValidate_CurrencyNormalized(t *testing.T) {
	d := validDraft("cad")
	d.Currency = "CAD"
	plan, err := domain.Validate(d)
	require.NoError(t, err)
	assert.Equal(t, "cad", plan.Currency())
}

func TestValidate_StatementDescriptorBoundary(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("accepted iff at most 22 characters", prop.ForAll(
		func(n int) bool {
			d := validDraft("described")
			d.StatementDescriptor = strings.Repeat("a", n)
			_, err := domain.Validate(d)
			return (err == nil) == (n <= domain.MaxStatementDescriptorLength)
		},
		gen.IntRange(0, 40),
	))

	properties.Property("interval count accepted iff positive", prop.ForAll(
		func(n int64) bool {
			d := validDraft("counted")
			d.IntervalCount = n
			_, err := domain.Validate(d)
			return (err == nil) == (n >= 1)
		},
		gen.Int64Range(-5, 12),
	))

	properties.TestingRun(t)
}

func TestValidate_ExactBoundary(t *testing.T) {
	d := validDraft("described")
	d.StatementDescriptor = strings.Repeat("a", 22)
	_, err := domain.Validate(d)
	require.NoError(t, err)

	d.StatementDescriptor = strings.Repeat("a", 23)
	_, err = domain.Validate(d)
	requireViolation(t, err, "statement_descriptor")
}
