package domain

const DefaultCurrency = "usd"

type TierDraft struct {
	Amount     int64  `yaml:"amount"`
	FlatAmount *int64 `yaml:"flat_amount"`
	UpTo       *int64 `yaml:"up_to"`
}

// Draft is a plan under construction. Enumerated fields hold raw strings
// until Validate parses them.
type Draft struct {
	Key          string
	ConstantName string

	Name                string
	ProductID           string
	Amount              *int64
	Currency            string
	Interval            string
	IntervalCount       int64
	TrialPeriodDays     int64
	UsageType           string
	AggregateUsage      string
	BillingScheme       string
	Tiers               []TierDraft
	TiersMode           string
	StatementDescriptor string
	Active              bool
	Nickname            string
	Metadata            map[string]any

	rejected []Violation
}

type Defaults struct {
	Currency string
}

func NewDraft(key string, defaults Defaults) *Draft {
	currency := defaults.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Draft{
		Key:           key,
		Currency:      currency,
		IntervalCount: 1,
		Active:        true,
	}
}

// Reject records a problem found while reading a declaration source, e.g.
// a non-boolean value for active. Validate reports it with the other rules.
func (d *Draft) Reject(field, message string) {
	d.rejected = append(d.rejected, Violation{Field: field, Message: message})
}

func Int64(v int64) *int64 { return &v }
