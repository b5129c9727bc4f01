// Package metrics provides tracking and exposure of trigger delivery metrics.
// It integrates with Prometheus to monitor events and notification outcomes.
//
// Key components:
//   - Metrics: Holds the collectors and implements trigger.DeliveryObserver.
//   - Observe: Counts every event published on a bus.
//
// Usage example:
//
//	m := metrics.Default()
//	subs := m.Observe(bus)
//	dispatcher := trigger.NewDispatcher(bus, store, triggers, m)
//
// The package uses Prometheus for metrics exposure.
package metrics
