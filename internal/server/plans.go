package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/plansync/internal/plan/domain"
)

const maxSyncLimit = 200

type TierResponse struct {
	Amount     int64  `json:"amount"`
	FlatAmount *int64 `json:"flat_amount,omitempty"`
	UpTo       *int64 `json:"up_to"`
}

type PlanResponse struct {
	ID                  string         `json:"id"`
	Identifier          string         `json:"identifier"`
	Name                string         `json:"name,omitempty"`
	ProductID           string         `json:"product_id,omitempty"`
	Amount              *int64         `json:"amount,omitempty"`
	Currency            string         `json:"currency"`
	Interval            string         `json:"interval"`
	IntervalCount       int64          `json:"interval_count"`
	TrialPeriodDays     int64          `json:"trial_period_days"`
	UsageType           string         `json:"usage_type"`
	AggregateUsage      string         `json:"aggregate_usage,omitempty"`
	BillingScheme       string         `json:"billing_scheme"`
	Tiers               []TierResponse `json:"tiers,omitempty"`
	TiersMode           string         `json:"tiers_mode,omitempty"`
	StatementDescriptor string         `json:"statement_descriptor,omitempty"`
	Active              bool           `json:"active"`
	Nickname            string         `json:"nickname,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	LastSyncStatus      string         `json:"last_sync_status,omitempty"`
}

func (s *Server) ListPlans(c *gin.Context) {
	var statuses map[string]string
	if s.ledger != nil {
		var err error
		statuses, err = s.ledger.LatestStatus(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	plans := s.registry.All()
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		resp := toPlanResponse(p)
		resp.LastSyncStatus = statuses[p.Key()]
		out = append(out, resp)
	}
	respondList(c, out)
}

func (s *Server) GetPlan(c *gin.Context) {
	plan, ok := s.registry.Lookup(strings.TrimSpace(c.Param("id")))
	if !ok {
		AbortWithError(c, domain.ErrPlanNotFound)
		return
	}
	respondData(c, toPlanResponse(plan))
}

func (s *Server) ListPlanSyncs(c *gin.Context) {
	plan, ok := s.registry.Lookup(strings.TrimSpace(c.Param("id")))
	if !ok {
		AbortWithError(c, domain.ErrPlanNotFound)
		return
	}
	if s.ledger == nil {
		respondList(c, []any{})
		return
	}

	records, err := s.ledger.ListByPlan(c.Request.Context(), plan.Key(), syncLimit(c.Query("limit")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, records)
}

// syncLimit parses the limit query parameter. Zero lets the ledger pick its
// default; anything above maxSyncLimit is capped.
func syncLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 0 {
		return 0
	}
	return min(limit, maxSyncLimit)
}

func toPlanResponse(p *domain.Plan) PlanResponse {
	resp := PlanResponse{
		ID:                  p.Key(),
		Identifier:          p.Identifier(),
		Name:                p.Name(),
		ProductID:           p.ProductID(),
		Currency:            p.Currency(),
		Interval:            string(p.Interval()),
		IntervalCount:       p.IntervalCount(),
		TrialPeriodDays:     p.TrialPeriodDays(),
		UsageType:           string(p.UsageType()),
		BillingScheme:       string(p.BillingScheme()),
		StatementDescriptor: p.StatementDescriptor(),
		Active:              p.Active(),
		Nickname:            p.Nickname(),
		Metadata:            p.Metadata(),
	}
	if amount, ok := p.Amount(); ok {
		resp.Amount = &amount
	}
	if v, ok := p.AggregateUsage(); ok {
		resp.AggregateUsage = string(v)
	}
	if v, ok := p.TiersMode(); ok {
		resp.TiersMode = string(v)
	}
	for _, t := range p.Tiers() {
		resp.Tiers = append(resp.Tiers, TierResponse{Amount: t.Amount, FlatAmount: t.FlatAmount, UpTo: t.UpTo})
	}
	return resp
}
