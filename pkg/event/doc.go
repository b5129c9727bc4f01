// Package event provides the process-wide bus carrying container and watcher lifecycle events.
//
// Handlers run off the publisher's goroutine. Invocations of one subscription, or of all
// subscriptions sharing a Queue, never overlap and follow publish order; distinct queues run
// concurrently. A handler that returns an error or panics is logged and never affects the
// publisher or the other handlers of the same event.
// Events are delivered at most once and are not persisted: a handler registered after a
// publish does not see it.
//
// Usage example:
//
//	bus := event.New()
//	queue := event.NewQueue()
//	added := bus.OnContainerAdded(onAdded, event.WithQueue(queue))
//	removed := bus.OnContainerRemoved(onRemoved, event.WithQueue(queue))
//	defer event.Unsubscribe(added, removed)
//	bus.PublishContainerUpdated(ctx, container)
package event
