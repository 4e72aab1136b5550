package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"github.com/railzwaylabs/plansync/internal/plan/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gold(d *domain.Draft) {
	d.Name = "Solid Gold"
	d.Amount = domain.Int64(699)
	d.Interval = "month"
}

func lookup(t *testing.T, reg *registry.Registry, key string) *domain.Plan {
	t.Helper()
	plan, ok := reg.Lookup(key)
	require.True(t, ok, key)
	return plan
}

func TestDeclare_LookupIsCaseAgnostic(t *testing.T) {
	reg := registry.New(registry.Options{})

	declared, err := reg.Declare("gold", gold)
	require.NoError(t, err)

	for _, key := range []string{"gold", "GOLD", "Gold", " gold "} {
		plan, ok := reg.Lookup(key)
		require.True(t, ok, key)
		assert.Same(t, declared, plan, key)
	}

	assert.Same(t, declared, lookup(t, reg, "Gold"))
}

func TestDeclare_ValidationFailureRegistersNothing(t *testing.T) {
	reg := registry.New(registry.Options{})

	_, err := reg.Declare("broken", func(d *domain.Draft) {
		d.Name = "Broken"
		d.Interval = "month"
	})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, cfgErr.Has("amount"))
	_, ok := reg.Lookup("broken")
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
}

func TestDeclare_UsesDefaults(t *testing.T) {
	reg := registry.New(registry.Options{Defaults: domain.Defaults{Currency: "eur"}})

	plan, err := reg.Declare("gold", gold)
	require.NoError(t, err)
	assert.Equal(t, "eur", plan.Currency())

	plan, err = reg.Declare("alternative_currency", func(d *domain.Draft) {
		gold(d)
		d.Currency = "cad"
	})
	require.NoError(t, err)
	assert.Equal(t, "cad", plan.Currency())
}

func TestDeclare_ConstantNameOverride(t *testing.T) {
	reg := registry.New(registry.Options{})

	plan, err := reg.Declare("Solid Gold", func(d *domain.Draft) {
		gold(d)
		d.ConstantName = "SOLID_GOLD"
	})
	require.NoError(t, err)

	got, ok := reg.Lookup("solid_gold")
	require.True(t, ok)
	assert.Same(t, plan, got)

	got, ok = reg.FindByKey("Solid Gold")
	require.True(t, ok)
	assert.Same(t, plan, got)

	_, ok = reg.FindByKey("solid gold")
	assert.False(t, ok)
}

func TestDeclare_OverwritePolicy(t *testing.T) {
	reg := registry.New(registry.Options{})

	_, err := reg.Declare("gold", gold)
	require.NoError(t, err)
	_, err = reg.Declare("silver", func(d *domain.Draft) {
		gold(d)
		d.Name = "Silver"
	})
	require.NoError(t, err)

	second, err := reg.Declare("GOLD", func(d *domain.Draft) {
		gold(d)
		d.Amount = domain.Int64(799)
	})
	require.NoError(t, err)

	got := lookup(t, reg, "gold")
	assert.Same(t, second, got)
	amount, _ := got.Amount()
	assert.Equal(t, int64(799), amount)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "GOLD", all[0].Identifier())
	assert.Equal(t, "SILVER", all[1].Identifier())
}

func TestDeclare_RejectPolicy(t *testing.T) {
	reg := registry.New(registry.Options{Policy: registry.PolicyReject})

	first, err := reg.Declare("gold", gold)
	require.NoError(t, err)

	_, err = reg.Declare("Gold", gold)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateIdentifier))
	assert.Same(t, first, lookup(t, reg, "gold"))
}

func TestAll_DeclarationOrderSnapshot(t *testing.T) {
	reg := registry.New(registry.Options{})
	for _, key := range []string{"gold", "primo", "metered"} {
		_, err := reg.Declare(key, gold)
		require.NoError(t, err)
	}

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"gold", "primo", "metered"}, []string{all[0].Key(), all[1].Key(), all[2].Key()})

	all[0] = nil
	assert.NotNil(t, reg.All()[0])
}

func TestRemove(t *testing.T) {
	reg := registry.New(registry.Options{})
	_, err := reg.Declare("gold", gold)
	require.NoError(t, err)
	_, err = reg.Declare("primo", gold)
	require.NoError(t, err)

	assert.True(t, reg.Remove("GOLD"))
	assert.False(t, reg.Remove("gold"))
	_, ok := reg.Lookup("gold")
	assert.False(t, ok)
	require.Len(t, reg.All(), 1)
	assert.Equal(t, "primo", reg.All()[0].Key())
}

func TestParsePolicy(t *testing.T) {
	p, err := registry.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, registry.PolicyOverwrite, p)

	p, err = registry.ParsePolicy("reject")
	require.NoError(t, err)
	assert.Equal(t, registry.PolicyReject, p)

	_, err = registry.ParsePolicy("merge")
	assert.Error(t, err)
}

func TestLookup_ConcurrentReaders(t *testing.T) {
	reg := registry.New(registry.Options{})
	_, err := reg.Declare("gold", gold)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, ok := reg.Lookup("gold")
				assert.True(t, ok)
				assert.Len(t, reg.All(), 1)
			}
		}()
	}
	wg.Wait()
}
