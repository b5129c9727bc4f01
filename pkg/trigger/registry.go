package trigger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Dependencies are the collaborators handed to every provider at construction.
type Dependencies struct {
	Bus     *event.Bus
	Store   types.Store
	Version string
}

// Factory creates an unconfigured provider instance.
type Factory func(name string, deps Dependencies) types.Trigger

// Configurations maps provider type to instance name to raw settings.
type Configurations map[string]map[string]map[string]any

// LoadFailure records a provider instance excluded at startup.
type LoadFailure struct {
	Type string
	Name string
	Err  error
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Loaded []string
	Failed []LoadFailure
}

// Registry maps provider types to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds or replaces the factory for a provider type.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Types returns the registered provider types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// Create builds and configures one provider instance without initializing it.
func (r *Registry) Create(kind, name string, raw map[string]any, deps Dependencies) (types.Trigger, error) {
	r.mu.RLock()
	factory, exists := r.factories[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, errUnknownType, kind)
	}

	instance := factory(name, deps)
	if err := instance.Configure(raw); err != nil {
		return nil, err
	}

	return instance, nil
}

// Load creates, configures and initializes every configured instance.
//
// A failing instance is logged and left out; it never prevents the others from loading.
func (r *Registry) Load(ctx context.Context, configs Configurations, deps Dependencies) ([]types.Trigger, LoadReport) {
	var (
		report   LoadReport
		triggers []types.Trigger
	)

	kinds := make([]string, 0, len(configs))
	for kind := range configs {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	for _, kind := range kinds {
		names := make([]string, 0, len(configs[kind]))
		for name := range configs[kind] {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			clog := logrus.WithFields(logrus.Fields{
				"type": kind,
				"name": name,
			})

			instance, err := r.Create(kind, name, configs[kind][name], deps)
			if err == nil {
				clog.WithField("configuration", instance.MaskConfiguration()).Debug("Trigger configured")

				if err = instance.Init(ctx); err != nil {
					err = fmt.Errorf("%w: %s.%s: %w", ErrInitialization, kind, name, err)

					if closer, ok := instance.(types.Closer); ok {
						_ = closer.Close()
					}
				}
			}

			if err != nil {
				clog.WithError(err).Error("Unable to register trigger")
				report.Failed = append(report.Failed, LoadFailure{Type: kind, Name: name, Err: err})

				continue
			}

			clog.Info("Registered trigger")

			triggers = append(triggers, instance)
			report.Loaded = append(report.Loaded, kind+"."+name)
		}
	}

	return triggers, report
}
