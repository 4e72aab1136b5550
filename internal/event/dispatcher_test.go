package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/plansync/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedFailure struct {
	message string
	stack   string
}

type fakeSink struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (s *fakeSink) Record(message, stack string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, recordedFailure{message: message, stack: stack})
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeSink, *observability.Metrics) {
	t.Helper()
	sink := &fakeSink{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(Params{Log: zap.NewNop(), Sink: sink, Metrics: metrics})
	return d, sink, metrics
}

func recorder(calls *[]string, name string, err error) Callback {
	return func(ctx context.Context, target any, evt *Event) error {
		*calls = append(*calls, name)
		return err
	}
}

func TestDispatch_TypeThenCatchAll(t *testing.T) {
	d, _, metrics := newTestDispatcher(t)
	var calls []string

	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))
	require.NoError(t, d.Subscribe("plan.created", recorder(&calls, "first", nil)))
	require.NoError(t, d.Subscribe("plan.created", recorder(&calls, "second", nil)))
	require.NoError(t, d.Subscribe("plan.deleted", recorder(&calls, "deleted", nil)))

	err := d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "plan.created"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "any"}, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchedEvents.WithLabelValues("plan.created", "ok")))
}

func TestDispatch_UnsubscribedTypeOnlyRunsCatchAll(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var calls []string
	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))

	require.NoError(t, d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "customer.created"}))
	require.NoError(t, d.Dispatch(context.Background(), nil, &Event{ID: "evt_2", Type: "brand.new.type"}))
	assert.Equal(t, []string{"any", "any"}, calls)
}

func TestDispatch_CatchAllEventRunsOnce(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var calls []string
	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))

	require.NoError(t, d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: AnyEvent}))
	assert.Equal(t, []string{"any"}, calls)
}

func TestDispatch_NilEvent(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var calls []string
	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))

	err := d.Dispatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNilEvent)
	assert.Empty(t, calls)
}

func TestDispatch_NonCriticalFailureIsContained(t *testing.T) {
	d, sink, metrics := newTestDispatcher(t)
	var calls []string

	require.NoError(t, d.Subscribe("invoice.payment_failed", recorder(&calls, "broken", errors.New("mailer down"))))
	require.NoError(t, d.Subscribe("invoice.payment_failed", recorder(&calls, "after", nil)))
	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))

	err := d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "invoice.payment_failed"})
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "after", "any"}, calls)

	require.Len(t, sink.failures, 1)
	assert.Contains(t, sink.failures[0].message, "mailer down")
	assert.Contains(t, sink.failures[0].message, "evt_1")
	assert.NotEmpty(t, sink.failures[0].stack)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CallbackFailures.WithLabelValues("invoice.payment_failed")))
}

func TestDispatch_NonCriticalPanicIsContained(t *testing.T) {
	d, sink, _ := newTestDispatcher(t)
	var calls []string

	require.NoError(t, d.Subscribe("plan.created", func(context.Context, any, *Event) error {
		panic("boom")
	}))
	require.NoError(t, d.Subscribe("plan.created", recorder(&calls, "after", nil)))

	require.NotPanics(t, func() {
		require.NoError(t, d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "plan.created"}))
	})
	assert.Equal(t, []string{"after"}, calls)
	require.Len(t, sink.failures, 1)
	assert.Contains(t, sink.failures[0].message, "callback panicked: boom")
}

func TestDispatch_CriticalFailureAborts(t *testing.T) {
	d, sink, metrics := newTestDispatcher(t)
	var calls []string
	rejected := errors.New("signature tampered")

	require.NoError(t, d.Subscribe("customer.created", recorder(&calls, "non-critical", nil)))
	require.NoError(t, d.SubscribeCritical("customer.created", recorder(&calls, "critical", rejected)))
	require.NoError(t, d.SubscribeCritical("customer.created", recorder(&calls, "critical-2", nil)))
	require.NoError(t, d.Subscribe(AnyEvent, recorder(&calls, "any", nil)))

	err := d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "customer.created"})
	assert.Same(t, rejected, err)
	assert.Equal(t, []string{"critical"}, calls)
	assert.Empty(t, sink.failures)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchedEvents.WithLabelValues("customer.created", "critical_failure")))
}

func TestDispatch_CriticalCatchAllFailure(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var calls []string
	rejected := errors.New("audit store down")

	require.NoError(t, d.Subscribe("plan.created", recorder(&calls, "typed", nil)))
	require.NoError(t, d.SubscribeCritical(AnyEvent, recorder(&calls, "any", rejected)))

	err := d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "plan.created"})
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, []string{"typed", "any"}, calls)
}

func TestDispatch_PassesTargetAndEvent(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	target := &struct{ name string }{name: "request"}
	evt := &Event{ID: "evt_1", Type: "ping"}

	var gotTarget any
	var gotEvent *Event
	require.NoError(t, d.Subscribe("ping", func(_ context.Context, tgt any, e *Event) error {
		gotTarget, gotEvent = tgt, e
		return nil
	}))

	require.NoError(t, d.Dispatch(context.Background(), target, evt))
	assert.Same(t, target, gotTarget)
	assert.Same(t, evt, gotEvent)
}

func TestSubscribe_UnknownType(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	err := d.Subscribe("plan.exploded", recorder(new([]string), "x", nil))
	var unknown *UnknownEventTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "plan.exploded", unknown.Type)

	err = d.SubscribeCritical("plan.exploded", recorder(new([]string), "x", nil))
	assert.ErrorAs(t, err, &unknown)

	assert.Error(t, d.Subscribe("plan.created", nil))
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	for _, typ := range []string{"plan.created", "customer.subscription.trial_will_end", "transfer.paid", AnyEvent} {
		assert.True(t, c.Has(typ), typ)
	}
	assert.False(t, c.Has("plan.exploded"))

	custom := NewCatalog("plan.created")
	assert.Equal(t, []string{"plan.created", AnyEvent}, custom.Types())
}

func TestRegisterSubscriptions(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	var calls []string

	err := RegisterSubscriptions(SubscriptionParams{
		Dispatcher: d,
		Subscriptions: []Subscription{
			{Type: "plan.created", Critical: true, Callback: recorder(&calls, "critical", nil)},
			{Type: "plan.created", Callback: recorder(&calls, "plain", nil)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), nil, &Event{ID: "evt_1", Type: "plan.created"}))
	assert.Equal(t, []string{"critical", "plain"}, calls)

	err = RegisterSubscriptions(SubscriptionParams{
		Dispatcher:    d,
		Subscriptions: []Subscription{{Type: "nope", Callback: recorder(&calls, "x", nil)}},
	})
	assert.Error(t, err)
}
