// Package loader declares plans from a YAML file such as:
//
//	plans:
//	  - key: gold
//	    name: Solid Gold
//	    amount: 699
//	    interval: month
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Declarer interface {
	Declare(key string, configure func(d *domain.Draft)) (*domain.Plan, error)
}

type file struct {
	Plans []yaml.Node `yaml:"plans"`
}

type declaration struct {
	Key                 string             `yaml:"key"`
	ConstantName        string             `yaml:"constant_name"`
	Name                string             `yaml:"name"`
	ProductID           string             `yaml:"product_id"`
	Amount              *int64             `yaml:"amount"`
	Currency            string             `yaml:"currency"`
	Interval            string             `yaml:"interval"`
	IntervalCount       *int64             `yaml:"interval_count"`
	TrialPeriodDays     *int64             `yaml:"trial_period_days"`
	UsageType           string             `yaml:"usage_type"`
	AggregateUsage      string             `yaml:"aggregate_usage"`
	BillingScheme       string             `yaml:"billing_scheme"`
	Tiers               []domain.TierDraft `yaml:"tiers"`
	TiersMode           string             `yaml:"tiers_mode"`
	StatementDescriptor string             `yaml:"statement_descriptor"`
	Active              *yaml.Node         `yaml:"active"`
	Nickname            string             `yaml:"nickname"`
	Metadata            map[string]any     `yaml:"metadata"`
}

func LoadFile(path string, reg Declarer) ([]*domain.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan declarations: %w", err)
	}
	defer f.Close()
	return Load(f, reg)
}

// Load declares every plan in r. A broken entry does not stop the others;
// all failures are returned together.
func Load(r io.Reader, reg Declarer) ([]*domain.Plan, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse plan declarations: %w", err)
	}

	var (
		plans []*domain.Plan
		errs  error
	)
	for i := range doc.Plans {
		node := &doc.Plans[i]
		var decl declaration
		decodeErr := node.Decode(&decl)

		var typeErr *yaml.TypeError
		if decodeErr != nil && !errors.As(decodeErr, &typeErr) {
			errs = multierr.Append(errs, fmt.Errorf("plan at line %d: %w", node.Line, decodeErr))
			continue
		}
		if strings.TrimSpace(decl.Key) == "" {
			errs = multierr.Append(errs, fmt.Errorf("plan at line %d: key is required", node.Line))
			continue
		}

		plan, err := reg.Declare(decl.Key, func(d *domain.Draft) {
			apply(d, decl)
			if typeErr != nil {
				for _, msg := range typeErr.Errors {
					d.Reject("", msg)
				}
			}
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		plans = append(plans, plan)
	}
	return plans, errs
}

func apply(d *domain.Draft, decl declaration) {
	d.ConstantName = decl.ConstantName
	d.Name = decl.Name
	d.ProductID = decl.ProductID
	d.Amount = decl.Amount
	if decl.Currency != "" {
		d.Currency = decl.Currency
	}
	d.Interval = decl.Interval
	if decl.IntervalCount != nil {
		d.IntervalCount = *decl.IntervalCount
	}
	if decl.TrialPeriodDays != nil {
		d.TrialPeriodDays = *decl.TrialPeriodDays
	}
	d.UsageType = decl.UsageType
	d.AggregateUsage = decl.AggregateUsage
	d.BillingScheme = decl.BillingScheme
	d.Tiers = decl.Tiers
	d.TiersMode = decl.TiersMode
	d.StatementDescriptor = decl.StatementDescriptor
	d.Nickname = decl.Nickname
	d.Metadata = decl.Metadata

	if decl.Active != nil {
		// Only YAML booleans count; "yes", "1" or "whatever" are rejected.
		var active bool
		if decl.Active.ShortTag() != "!!bool" || decl.Active.Decode(&active) != nil {
			d.Reject("active", fmt.Sprintf("must be a boolean, got %q", decl.Active.Value))
		} else {
			d.Active = active
		}
	}
}
