// Package store provides an in-memory container and watcher registry.
//
// Mutations publish the matching lifecycle event on the bus after the state change is
// visible, so handlers querying the store observe the new state.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Memory is a concurrency-safe in-memory store.
type Memory struct {
	mu         sync.RWMutex
	bus        *event.Bus
	containers map[string]types.Container
	watchers   map[string]types.Watcher
}

// NewMemory creates an empty store publishing on bus. bus may be nil.
func NewMemory(bus *event.Bus) *Memory {
	return &Memory{
		bus:        bus,
		containers: make(map[string]types.Container),
		watchers:   make(map[string]types.Watcher),
	}
}

func key(c types.Container) string {
	if c.ID != "" {
		return c.ID
	}

	return c.Watcher + "/" + c.Name
}

// Containers implements types.Store. Results are ordered by watcher then name.
func (m *Memory) Containers(filter types.ContainerFilter) []types.Container {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.Container, 0, len(m.containers))

	for _, c := range m.containers {
		if filter.Match(c) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Watcher != result[j].Watcher {
			return result[i].Watcher < result[j].Watcher
		}

		return result[i].Name < result[j].Name
	})

	return result
}

// Upsert inserts or replaces a container and emits container-added or container-updated.
func (m *Memory) Upsert(ctx context.Context, c types.Container) {
	m.mu.Lock()
	_, exists := m.containers[key(c)]
	m.containers[key(c)] = c
	m.mu.Unlock()

	clog := logrus.WithFields(logrus.Fields{
		"watcher":   c.Watcher,
		"container": c.Name,
	})

	if m.bus == nil {
		return
	}

	if exists {
		clog.Debug("Container updated")
		m.bus.PublishContainerUpdated(ctx, c)

		return
	}

	clog.Debug("Container added")
	m.bus.PublishContainerAdded(ctx, c)
}

// Remove deletes a container and emits container-removed. Unknown containers are ignored.
func (m *Memory) Remove(ctx context.Context, c types.Container) bool {
	m.mu.Lock()
	stored, exists := m.containers[key(c)]
	delete(m.containers, key(c))
	m.mu.Unlock()

	if !exists {
		return false
	}

	logrus.WithFields(logrus.Fields{
		"watcher":   stored.Watcher,
		"container": stored.Name,
	}).Debug("Container removed")

	if m.bus != nil {
		m.bus.PublishContainerRemoved(ctx, stored)
	}

	return true
}

// SetWatcherRunning records a watcher state change and emits watcher-started or
// watcher-stopped when the state actually changes.
func (m *Memory) SetWatcherRunning(ctx context.Context, name string, running bool) {
	m.mu.Lock()
	previous, known := m.watchers[name]
	watcher := types.Watcher{Name: name, Running: running}
	m.watchers[name] = watcher
	m.mu.Unlock()

	if known && previous.Running == running {
		return
	}

	if m.bus == nil {
		return
	}

	if running {
		m.bus.PublishWatcherStarted(ctx, watcher)
	} else {
		m.bus.PublishWatcherStopped(ctx, watcher)
	}
}

// Watchers returns the known watchers ordered by name.
func (m *Memory) Watchers() []types.Watcher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.Watcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		result = append(result, w)
	}

	slices.SortFunc(result, func(a, b types.Watcher) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})

	return result
}
