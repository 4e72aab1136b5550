package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
	ReadinessStateOptional ReadinessState = "optional"
)

type ReadinessIssue struct {
	ID       string            `json:"id"`
	Status   ReadinessState    `json:"status"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

type ReadinessResponse struct {
	SystemState ReadinessState   `json:"system_state"`
	Issues      []ReadinessIssue `json:"issues"`
}

func (s *Server) RegisterSystemRoutes() {
	s.engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	s.engine.GET("/ready", s.GetSystemReadiness)
}

// GetSystemReadiness reports whether plans are declared, the ledger database
// answers and a webhook secret is configured.
func (s *Server) GetSystemReadiness(c *gin.Context) {
	ctx := c.Request.Context()

	issues := make([]ReadinessIssue, 0, 3)
	isReady := true

	if n := s.registry.Len(); n == 0 {
		isReady = false
		issues = append(issues, ReadinessIssue{
			ID:       "plans_declared",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"declared_plans": "0"},
		})
	} else {
		issues = append(issues, ReadinessIssue{
			ID:       "plans_declared",
			Status:   ReadinessStateReady,
			Evidence: map[string]string{"declared_plans": strconv.Itoa(n)},
		})
	}

	if s.db == nil {
		issues = append(issues, ReadinessIssue{ID: "sync_ledger", Status: ReadinessStateOptional})
	} else if err := s.pingDB(ctx); err != nil {
		isReady = false
		issues = append(issues, ReadinessIssue{
			ID:       "sync_ledger",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"error": err.Error()},
		})
	} else {
		issues = append(issues, ReadinessIssue{ID: "sync_ledger", Status: ReadinessStateReady})
	}

	if s.cfg.Stripe.WebhookSecret == "" {
		isReady = false
		issues = append(issues, ReadinessIssue{ID: "webhook_secret", Status: ReadinessStateNotReady})
	} else {
		issues = append(issues, ReadinessIssue{ID: "webhook_secret", Status: ReadinessStateReady})
	}

	state, status := ReadinessStateReady, http.StatusOK
	if !isReady {
		state, status = ReadinessStateNotReady, http.StatusServiceUnavailable
	}
	c.JSON(status, ReadinessResponse{SystemState: state, Issues: issues})
}

func (s *Server) pingDB(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
