package registry

import (
	"fmt"
	"sync"

	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"go.uber.org/zap"
)

// Policy decides what Declare does with an identifier that is already registered.
type Policy string

const (
	// PolicyOverwrite replaces the earlier plan in place, so reloads keep their order.
	PolicyOverwrite Policy = "overwrite"
	PolicyReject    Policy = "reject"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyOverwrite:
		return PolicyOverwrite, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("unknown redeclare policy %q", raw)
}

type Options struct {
	Defaults domain.Defaults
	Policy   Policy
	Log      *zap.Logger
}

// Registry holds validated plans keyed by upper-cased identifier. Populate it
// during startup; afterwards it is safe for concurrent readers.
type Registry struct {
	mu       sync.RWMutex
	defaults domain.Defaults
	policy   Policy
	log      *zap.Logger

	plans map[string]*domain.Plan
	order []string
}

func New(opts Options) *Registry {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyOverwrite
	}
	return &Registry{
		defaults: opts.Defaults,
		policy:   policy,
		log:      log.Named("plan.registry"),
		plans:    make(map[string]*domain.Plan),
	}
}

// Declare builds a draft for key, lets configure fill it in, validates it and
// registers the resulting plan. Nothing is registered when validation fails.
func (r *Registry) Declare(key string, configure func(d *domain.Draft)) (*domain.Plan, error) {
	draft := domain.NewDraft(key, r.defaults)
	if configure != nil {
		configure(draft)
	}

	plan, err := domain.Validate(draft)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := plan.Identifier()
	if _, exists := r.plans[id]; exists {
		if r.policy == PolicyReject {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateIdentifier, id)
		}
		r.log.Debug("plan redeclared", zap.String("identifier", id))
	} else {
		r.order = append(r.order, id)
	}
	r.plans[id] = plan
	return plan, nil
}

// Lookup is case agnostic: "gold", "GOLD" and "Gold" resolve to the same plan.
func (r *Registry) Lookup(key string) (*domain.Plan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[domain.NormalizeIdentifier(key)]
	return plan, ok
}

// FindByKey returns the plan declared under key, which is also its remote id.
// Unlike Lookup it is exact, since remote ids are case sensitive.
func (r *Registry) FindByKey(key string) (*domain.Plan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if p := r.plans[id]; p.Key() == key {
			return p, true
		}
	}
	return nil, false
}

// All returns the registered plans in declaration order.
func (r *Registry) All() []*domain.Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Plan, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plans[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Remove(key string) bool {
	id := domain.NormalizeIdentifier(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return false
	}
	delete(r.plans, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}
