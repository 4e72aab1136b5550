package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/railzwaylabs/plansync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewRegistry),
	fx.Provide(NewMetrics),
)

func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	log, err := BuildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func BuildLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zc zap.Config
	switch strings.TrimSpace(format) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type Metrics struct {
	SyncOutcomes     *prometheus.CounterVec
	DispatchedEvents *prometheus.CounterVec
	CallbackFailures *prometheus.CounterVec
	DeclaredPlans    prometheus.Gauge
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		SyncOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plansync",
			Name:      "sync_outcomes_total",
			Help:      "Plan reconciliation outcomes by status.",
		}, []string{"status"}),
		DispatchedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plansync",
			Name:      "dispatched_events_total",
			Help:      "Webhook events dispatched by type and result.",
		}, []string{"type", "result"}),
		CallbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plansync",
			Name:      "callback_failures_total",
			Help:      "Contained non-critical callback failures by event type.",
		}, []string{"type"}),
		DeclaredPlans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plansync",
			Name:      "declared_plans",
			Help:      "Plans currently held by the registry.",
		}),
	}
	reg.MustRegister(m.SyncOutcomes, m.DispatchedEvents, m.CallbackFailures, m.DeclaredPlans)
	return m
}
