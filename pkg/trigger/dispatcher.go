package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/types"
)

// DeliveryObserver is notified of every delivery attempt. err is nil on success.
type DeliveryObserver interface {
	ObserveDelivery(kind, name string, err error)
}

// Dispatcher wires loaded triggers to the event bus and runs batch deliveries.
type Dispatcher struct {
	bus      *event.Bus
	store    types.Store
	triggers []types.Trigger
	observer DeliveryObserver

	mu   sync.Mutex
	subs []event.Subscription
}

// NewDispatcher creates a dispatcher. observer may be nil.
func NewDispatcher(bus *event.Bus, store types.Store, triggers []types.Trigger, observer DeliveryObserver) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		store:    store,
		triggers: triggers,
		observer: observer,
	}
}

// Settings returns the common settings of t, or defaults when t does not expose them.
func Settings(t types.Trigger) Common {
	if configured, ok := t.(Configured); ok {
		return configured.Settings()
	}

	var common Common
	common.ApplyDefaults()

	return common
}

// Start subscribes every simple-mode trigger to container-added and container-updated.
//
// Each trigger gets its own queue: triggers run independently of each other, and one trigger
// receives the events in publish order.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.triggers {
		clog := logrus.WithField("trigger", t.Type()+"."+t.Name())

		if self, ok := t.(SelfSubscriber); ok && self.SelfSubscribes() {
			clog.Debug("Trigger subscribes to events itself")

			continue
		}

		if Settings(t).Mode != ModeSimple {
			clog.Debug("Trigger runs in batch mode; skipping event subscription")

			continue
		}

		handler := d.singleHandler(t)
		ordered := event.WithQueue(event.NewQueue())
		d.subs = append(d.subs, d.bus.OnContainerAdded(handler, ordered), d.bus.OnContainerUpdated(handler, ordered))
		clog.Debug("Subscribed trigger to container events")
	}
}

func (d *Dispatcher) singleHandler(t types.Trigger) event.ContainerHandler {
	return func(ctx context.Context, container types.Container) error {
		clog := logrus.WithFields(logrus.Fields{
			"trigger":   t.Type() + "." + t.Name(),
			"container": container.Watcher + "/" + container.Name,
		})

		if !container.UpdateAvailable {
			clog.Trace("No update available; skipping")

			return nil
		}

		if !ThresholdReached(container, Settings(t).Threshold) {
			clog.Debug("Update below threshold; skipping")

			return nil
		}

		err := t.Trigger(ctx, container)
		d.observe(t, err)

		if err != nil {
			clog.WithError(err).Error("Trigger delivery failed")

			return nil
		}

		clog.Debug("Trigger delivered")

		return nil
	}
}

// RunBatch delivers one batch notification per batch-mode trigger with the containers
// currently reporting an update. Triggers run concurrently; their errors are logged and
// returned combined.
func (d *Dispatcher) RunBatch(ctx context.Context) error {
	updates := d.store.Containers(types.ContainerFilter{UpdateAvailable: types.Bool(true)})
	logrus.WithField("updates", len(updates)).Debug("Running batch triggers")

	p := pool.New().WithErrors()

	for _, t := range d.triggers {
		settings := Settings(t)
		if settings.Mode != ModeBatch {
			continue
		}

		containers := make([]types.Container, 0, len(updates))

		for _, container := range updates {
			if ThresholdReached(container, settings.Threshold) {
				containers = append(containers, container)
			}
		}

		clog := logrus.WithFields(logrus.Fields{
			"trigger":    t.Type() + "." + t.Name(),
			"containers": len(containers),
		})

		if len(containers) == 0 {
			clog.Debug("Nothing to deliver in batch")

			continue
		}

		p.Go(func() error {
			err := t.TriggerBatch(ctx, containers)
			d.observe(t, err)

			if err != nil {
				clog.WithError(err).Error("Batch trigger delivery failed")

				return fmt.Errorf("%s.%s: %w", t.Type(), t.Name(), err)
			}

			clog.Info("Batch trigger delivered")

			return nil
		})
	}

	return p.Wait()
}

// HasBatchTriggers reports whether any loaded trigger runs in batch mode.
func (d *Dispatcher) HasBatchTriggers() bool {
	for _, t := range d.triggers {
		if Settings(t).Mode == ModeBatch {
			return true
		}
	}

	return false
}

// Stop removes the event subscriptions made by Start and closes triggers holding resources.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	event.Unsubscribe(d.subs...)
	d.subs = nil
	d.mu.Unlock()

	for _, t := range d.triggers {
		closer, ok := t.(types.Closer)
		if !ok {
			continue
		}

		if err := closer.Close(); err != nil {
			logrus.WithError(err).WithField("trigger", t.Type()+"."+t.Name()).Warn("Failed to close trigger")
		}
	}
}

func (d *Dispatcher) observe(t types.Trigger, err error) {
	if d.observer != nil {
		d.observer.ObserveDelivery(t.Type(), t.Name(), err)
	}
}
