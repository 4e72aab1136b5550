package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/railzwaylabs/plansync/internal/observability"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNilEvent = errors.New("nil_event")

// FailureSink receives contained non-critical callback failures.
type FailureSink interface {
	Record(message, stack string)
}

type zapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) FailureSink {
	return &zapSink{log: log}
}

func (s *zapSink) Record(message, stack string) {
	s.log.Error(message, zap.String("stacktrace", stack))
}

type callbacks struct {
	critical    []Callback
	nonCritical []Callback
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Catalog *Catalog               `optional:"true"`
	Sink    FailureSink            `optional:"true"`
	Metrics *observability.Metrics `optional:"true"`
}

// Dispatcher routes events to callbacks registered per type. Register
// callbacks during startup; dispatching is safe from many goroutines.
type Dispatcher struct {
	mu      sync.RWMutex
	catalog *Catalog
	byType  map[string]*callbacks
	log     *zap.Logger
	sink    FailureSink
	metrics *observability.Metrics
}

func NewDispatcher(p Params) *Dispatcher {
	log := p.Log.Named("event.dispatcher")
	catalog := p.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	sink := p.Sink
	if sink == nil {
		sink = NewZapSink(log)
	}
	return &Dispatcher{
		catalog: catalog,
		byType:  make(map[string]*callbacks),
		log:     log,
		sink:    sink,
		metrics: p.Metrics,
	}
}

// Subscribe registers a non-critical callback. Its failures are logged and
// never reach the caller of Dispatch.
func (d *Dispatcher) Subscribe(eventType string, cb Callback) error {
	return d.register(eventType, cb, false)
}

// SubscribeCritical registers a callback whose failure aborts the dispatch.
func (d *Dispatcher) SubscribeCritical(eventType string, cb Callback) error {
	return d.register(eventType, cb, true)
}

func (d *Dispatcher) register(eventType string, cb Callback, critical bool) error {
	if !d.catalog.Has(eventType) {
		return &UnknownEventTypeError{Type: eventType}
	}
	if cb == nil {
		return fmt.Errorf("nil callback for %s", eventType)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	list, ok := d.byType[eventType]
	if !ok {
		list = &callbacks{}
		d.byType[eventType] = list
	}
	if critical {
		list.critical = append(list.critical, cb)
	} else {
		list.nonCritical = append(list.nonCritical, cb)
	}
	return nil
}

// Dispatch runs the callbacks for evt.Type and then those for AnyEvent. Within
// each type critical callbacks run first; the first critical error is returned
// as is and nothing after it runs. An event whose type is AnyEvent runs the
// catch-all callbacks once, not twice.
func (d *Dispatcher) Dispatch(ctx context.Context, target any, evt *Event) error {
	if evt == nil {
		return ErrNilEvent
	}
	if err := d.run(ctx, evt.Type, target, evt); err != nil {
		d.observe(evt.Type, "critical_failure")
		return err
	}
	if evt.Type != AnyEvent {
		if err := d.run(ctx, AnyEvent, target, evt); err != nil {
			d.observe(evt.Type, "critical_failure")
			return err
		}
	}
	d.observe(evt.Type, "ok")
	return nil
}

func (d *Dispatcher) run(ctx context.Context, eventType string, target any, evt *Event) error {
	d.mu.RLock()
	list := d.byType[eventType]
	var critical, nonCritical []Callback
	if list != nil {
		critical = append(critical, list.critical...)
		nonCritical = append(nonCritical, list.nonCritical...)
	}
	d.mu.RUnlock()

	for _, cb := range critical {
		if err := cb(ctx, target, evt); err != nil {
			return err
		}
	}

	for i, cb := range nonCritical {
		if err := d.contain(ctx, cb, target, evt); err != nil {
			d.sink.Record(
				fmt.Sprintf("non-critical callback %d for %s failed on event %s: %v", i, eventType, evt.ID, err),
				stackOf(err),
			)
			if d.metrics != nil {
				d.metrics.CallbackFailures.WithLabelValues(eventType).Inc()
			}
		}
	}
	return nil
}

// contain runs cb and turns a panic into an error carrying the panic's stack.
func (d *Dispatcher) contain(ctx context.Context, cb Callback, target any, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("callback panicked: %v", r)
		}
	}()
	return cb(ctx, target, evt)
}

func (d *Dispatcher) observe(eventType, result string) {
	if d.metrics == nil {
		return
	}
	d.metrics.DispatchedEvents.WithLabelValues(eventType, result).Inc()
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func stackOf(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return string(debug.Stack())
}
