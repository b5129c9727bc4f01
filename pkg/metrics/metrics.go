package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/getwud/wud-triggers/pkg/event"
)

// Delivery results used as label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var errAlreadyRegistered = errors.New("metric already registered")

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// Metrics holds the Prometheus collectors of the trigger subsystem.
type Metrics struct {
	deliveries *prometheus.CounterVec // Delivery attempts by trigger and result.
	events     *prometheus.CounterVec // Published events by kind.
	loaded     prometheus.Gauge       // Triggers successfully loaded.
	failed     prometheus.Gauge       // Triggers excluded at startup.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wud_trigger_deliveries_total",
			Help: "Number of trigger delivery attempts by result",
		}, []string{"type", "name", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wud_events_published_total",
			Help: "Number of container and watcher events published",
		}, []string{"kind"}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wud_trigger_loaded",
			Help: "Number of triggers registered at startup",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wud_trigger_failed",
			Help: "Number of triggers excluded at startup because of configuration or initialization errors",
		}),
	}

	for _, collector := range []prometheus.Collector{m.deliveries, m.events, m.loaded, m.failed} {
		if err := registry.Register(collector); err != nil {
			alreadyRegistered := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, &alreadyRegistered) {
				return nil, fmt.Errorf("%w: %w", errAlreadyRegistered, err)
			}

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// Default initializes or returns the singleton Metrics handler bound to the default registry.
// It panics on registration failure.
func Default() *Metrics {
	metricsOnce.Do(func() {
		var err error

		metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
	})

	return metrics
}

// ObserveDelivery records one delivery attempt. err is nil on success.
func (m *Metrics) ObserveDelivery(kind, name string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}

	m.deliveries.WithLabelValues(kind, name, result).Inc()
}

// SetLoaded records how many triggers were registered and excluded at startup.
func (m *Metrics) SetLoaded(loaded, failed int) {
	m.loaded.Set(float64(loaded))
	m.failed.Set(float64(failed))
}

// Observe subscribes to every event kind on bus and counts publications.
//
// Returns:
//   - []event.Subscription: Handles to release with event.Unsubscribe.
func (m *Metrics) Observe(bus *event.Bus) []event.Subscription {
	subs := make([]event.Subscription, 0, len(event.Kinds))

	for _, kind := range event.Kinds {
		counter := m.events.WithLabelValues(string(kind))
		subs = append(subs, bus.Subscribe(kind, func(context.Context, any) error {
			counter.Inc()

			return nil
		}))
	}

	return subs
}
