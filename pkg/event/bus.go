package event

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"

	"github.com/getwud/wud-triggers/pkg/types"
)

// Kind identifies an event type.
type Kind string

// Supported event kinds.
const (
	ContainerAdded   Kind = "container-added"
	ContainerUpdated Kind = "container-updated"
	ContainerRemoved Kind = "container-removed"
	WatcherStarted   Kind = "watcher-started"
	WatcherStopped   Kind = "watcher-stopped"
)

// Kinds lists every supported event kind.
var Kinds = []Kind{ContainerAdded, ContainerUpdated, ContainerRemoved, WatcherStarted, WatcherStopped}

// Handler processes one event payload.
type Handler func(ctx context.Context, payload any) error

// ContainerHandler processes a container event.
type ContainerHandler func(ctx context.Context, container types.Container) error

// WatcherHandler processes a watcher event.
type WatcherHandler func(ctx context.Context, watcher types.Watcher) error

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   uint64
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus != nil {
		s.bus.Unsubscribe(s)
	}
}

// Kind returns the subscribed event kind.
func (s Subscription) Kind() Kind { return s.kind }

// Option customizes a subscription.
type Option func(*subscriber)

// WithQueue delivers through q, so that every subscription sharing q sees events in publish order.
func WithQueue(q *Queue) Option {
	return func(s *subscriber) {
		s.queue = q
	}
}

type subscriber struct {
	handler Handler
	queue   *Queue
}

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	closed   bool
	handlers map[Kind]map[uint64]subscriber
	order    map[Kind][]uint64
	inflight sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Kind]map[uint64]subscriber),
		order:    make(map[Kind][]uint64),
	}
}

// Subscribe registers a handler for the given kind.
//
// Without WithQueue the subscription gets a queue of its own: its invocations never overlap
// and follow publish order, while different subscriptions run concurrently.
func (b *Bus) Subscribe(kind Kind, handler Handler, opts ...Option) Subscription {
	sub := subscriber{handler: handler}
	for _, opt := range opts {
		opt(&sub)
	}

	if sub.queue == nil {
		sub.queue = NewQueue()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[uint64]subscriber)
	}

	b.handlers[kind][b.nextID] = sub
	b.order[kind] = append(b.order[kind], b.nextID)

	logrus.WithFields(logrus.Fields{
		"kind": kind,
		"id":   b.nextID,
	}).Trace("Registered event handler")

	return Subscription{bus: b, kind: kind, id: b.nextID}
}

// Unsubscribe removes a previously registered handler.
//
// Invocations already queued for it still run.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handlers[sub.kind][sub.id]; !ok {
		return
	}

	delete(b.handlers[sub.kind], sub.id)
	b.order[sub.kind] = slices.DeleteFunc(b.order[sub.kind], func(id uint64) bool { return id == sub.id })
}

// Publish delivers the payload to every handler subscribed to kind.
//
// It returns once the invocations are queued; it does not wait for them. Handlers
// receive a context that keeps the publisher's values but not its cancellation.
// Events published after Close are dropped.
func (b *Bus) Publish(ctx context.Context, kind Kind, payload any) {
	clog := logrus.WithField("kind", kind)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		clog.Debug("Dropping event published after close")

		return
	}

	targets := make([]subscriber, 0, len(b.order[kind]))
	for _, id := range b.order[kind] {
		targets = append(targets, b.handlers[kind][id])
	}

	// Counted under the lock so that Close never waits before these are registered.
	b.inflight.Add(len(targets))
	b.mu.RUnlock()

	clog = clog.WithField("handlers", len(targets))
	clog.Debug("Publishing event")

	handlerCtx := context.WithoutCancel(ctx)

	for _, target := range targets {
		target.queue.push(func() {
			defer b.inflight.Done()

			var err error

			if recovered := panics.Try(func() { err = target.handler(handlerCtx, payload) }); recovered != nil {
				clog.WithError(recovered.AsError()).Error("Event handler panicked")

				return
			}

			if err != nil {
				clog.WithError(err).Warn("Event handler failed")
			}
		})
	}
}

// Wait blocks until every handler invocation queued by Publish has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Close drops all subscriptions, rejects further publishes and waits for queued invocations.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[Kind]map[uint64]subscriber)
	b.order = make(map[Kind][]uint64)
	b.mu.Unlock()

	b.Wait()
}

// Subscribers returns the number of handlers registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers[kind])
}

func containerHandler(kind Kind, handler ContainerHandler) Handler {
	return func(ctx context.Context, payload any) error {
		container, ok := payload.(types.Container)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", errUnexpectedPayload, kind, payload)
		}

		return handler(ctx, container)
	}
}

func watcherHandler(kind Kind, handler WatcherHandler) Handler {
	return func(ctx context.Context, payload any) error {
		watcher, ok := payload.(types.Watcher)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", errUnexpectedPayload, kind, payload)
		}

		return handler(ctx, watcher)
	}
}
