package event

import (
	"context"

	"github.com/getwud/wud-triggers/pkg/types"
)

// OnContainerAdded subscribes to container-added events.
func (b *Bus) OnContainerAdded(handler ContainerHandler, opts ...Option) Subscription {
	return b.Subscribe(ContainerAdded, containerHandler(ContainerAdded, handler), opts...)
}

// OnContainerUpdated subscribes to container-updated events.
func (b *Bus) OnContainerUpdated(handler ContainerHandler, opts ...Option) Subscription {
	return b.Subscribe(ContainerUpdated, containerHandler(ContainerUpdated, handler), opts...)
}

// OnContainerRemoved subscribes to container-removed events.
func (b *Bus) OnContainerRemoved(handler ContainerHandler, opts ...Option) Subscription {
	return b.Subscribe(ContainerRemoved, containerHandler(ContainerRemoved, handler), opts...)
}

// OnWatcherStarted subscribes to watcher-started events.
func (b *Bus) OnWatcherStarted(handler WatcherHandler, opts ...Option) Subscription {
	return b.Subscribe(WatcherStarted, watcherHandler(WatcherStarted, handler), opts...)
}

// OnWatcherStopped subscribes to watcher-stopped events.
func (b *Bus) OnWatcherStopped(handler WatcherHandler, opts ...Option) Subscription {
	return b.Subscribe(WatcherStopped, watcherHandler(WatcherStopped, handler), opts...)
}

// PublishContainerAdded emits a container-added event.
func (b *Bus) PublishContainerAdded(ctx context.Context, container types.Container) {
	b.Publish(ctx, ContainerAdded, container)
}

// PublishContainerUpdated emits a container-updated event.
func (b *Bus) PublishContainerUpdated(ctx context.Context, container types.Container) {
	b.Publish(ctx, ContainerUpdated, container)
}

// PublishContainerRemoved emits a container-removed event.
func (b *Bus) PublishContainerRemoved(ctx context.Context, container types.Container) {
	b.Publish(ctx, ContainerRemoved, container)
}

// PublishWatcherStarted emits a watcher-started event.
func (b *Bus) PublishWatcherStarted(ctx context.Context, watcher types.Watcher) {
	b.Publish(ctx, WatcherStarted, watcher)
}

// PublishWatcherStopped emits a watcher-stopped event.
func (b *Bus) PublishWatcherStopped(ctx context.Context, watcher types.Watcher) {
	b.Publish(ctx, WatcherStopped, watcher)
}

// Unsubscribe releases every subscription in subs.
func Unsubscribe(subs ...Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
