package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/railzwaylabs/plansync/internal/observability"
	"github.com/railzwaylabs/plansync/internal/plan/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Status string

const (
	StatusCreated       Status = "created"
	StatusAlreadyExists Status = "already_exists"
	StatusFailed        Status = "failed"
)

type Outcome struct {
	Key        string
	Identifier string
	Status     Status
	RemoteID   string
	Err        error
}

// Recorder keeps a history of outcomes. Recording failures never change an outcome.
type Recorder interface {
	Record(ctx context.Context, version APIVersion, outcome Outcome) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Remote   RemoteAPI
	Recorder Recorder              `optional:"true"`
	Metrics  *observability.Metrics `optional:"true"`
}

// Service reconciles declared plans with the remote API. It holds no mutable
// state, so distinct plans may be reconciled from different goroutines.
type Service struct {
	log      *zap.Logger
	remote   RemoteAPI
	recorder Recorder
	metrics  *observability.Metrics
}

func New(p Params) *Service {
	return &Service{
		log:      p.Log.Named("plan.reconcile"),
		remote:   p.Remote,
		recorder: p.Recorder,
		metrics:  p.Metrics,
	}
}

// Reconcile creates plan remotely unless it already exists. Errors are
// returned inside the Outcome, never as a separate value.
func (s *Service) Reconcile(ctx context.Context, version APIVersion, plan *domain.Plan) Outcome {
	ctx, span := otel.Tracer("plansync/reconcile").Start(ctx, "reconcile.plan")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.id", plan.Key()),
		attribute.String("api.version", string(version)),
	)

	outcome := s.reconcile(ctx, version, plan)

	span.SetAttributes(attribute.String("outcome", string(outcome.Status)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
	if s.metrics != nil {
		s.metrics.SyncOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, version, outcome); err != nil {
			s.log.Warn("failed to record sync outcome", zap.String("plan_id", plan.Key()), zap.Error(err))
		}
	}
	return outcome
}

func (s *Service) reconcile(ctx context.Context, version APIVersion, plan *domain.Plan) Outcome {
	outcome := Outcome{Key: plan.Key(), Identifier: plan.Identifier()}

	existing, err := s.remote.RetrievePlan(ctx, plan.Key())
	switch {
	case err == nil:
		outcome.Status = StatusAlreadyExists
		if existing != nil {
			outcome.RemoteID = existing.ID
		}
		s.log.Debug("plan already exists", zap.String("plan_id", plan.Key()))
		return outcome
	case !errors.Is(err, ErrNotFound):
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("retrieve plan %s: %w", plan.Key(), err)
		s.log.Error("plan lookup failed", zap.String("plan_id", plan.Key()), zap.Error(err))
		return outcome
	}

	created, err := s.remote.CreatePlan(ctx, BuildPayload(version, plan))
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("create plan %s: %w", plan.Key(), err)
		s.log.Error("plan creation rejected", zap.String("plan_id", plan.Key()), zap.Error(err))
		return outcome
	}

	outcome.Status = StatusCreated
	if created != nil {
		outcome.RemoteID = created.ID
	}
	s.log.Info("plan created", zap.String("plan_id", plan.Key()), zap.String("api_version", string(version)))
	return outcome
}

// ReconcileAll reconciles plans in order and keeps going past failures.
func (s *Service) ReconcileAll(ctx context.Context, version APIVersion, plans []*domain.Plan) []Outcome {
	outcomes := make([]Outcome, 0, len(plans))
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{
				Key:        plan.Key(),
				Identifier: plan.Identifier(),
				Status:     StatusFailed,
				Err:        err,
			})
			continue
		}
		outcomes = append(outcomes, s.Reconcile(ctx, version, plan))
	}
	return outcomes
}
