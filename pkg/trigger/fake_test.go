package trigger_test

import (
	"context"
	"errors"
	"sync"

	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

var errFake = errors.New("fake failure")

type fakeConfiguration struct {
	trigger.Common `mapstructure:",squash"`

	Endpoint string `mapstructure:"endpoint" validate:"required"`
	Secret   string `mapstructure:"secret"`
	FailInit bool   `mapstructure:"failinit"`
	FailSend bool   `mapstructure:"failsend"`
}

// fakeTrigger records deliveries.
type fakeTrigger struct {
	trigger.Base

	cfg    fakeConfiguration
	closed bool

	mu      sync.Mutex
	singles []types.Container
	batches [][]types.Container
}

func newFake(name string, _ trigger.Dependencies) types.Trigger {
	return &fakeTrigger{Base: trigger.NewBase("fake", name)}
}

func (f *fakeTrigger) Configure(raw map[string]any) error {
	var cfg fakeConfiguration
	if err := trigger.Decode(raw, &cfg); err != nil {
		return err
	}

	cfg.Common.ApplyDefaults()

	if err := trigger.Validate(&cfg); err != nil {
		return err
	}

	f.cfg = cfg

	return f.SetCommon(cfg.Common)
}

func (f *fakeTrigger) MaskConfiguration() map[string]any {
	masked := f.cfg.Common.Map()
	masked["endpoint"] = f.cfg.Endpoint
	masked["secret"] = trigger.Mask(f.cfg.Secret)

	return masked
}

func (f *fakeTrigger) Init(context.Context) error {
	if f.cfg.FailInit {
		return errFake
	}

	return nil
}

func (f *fakeTrigger) Trigger(_ context.Context, c types.Container) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.FailSend {
		return errFake
	}

	f.singles = append(f.singles, c)

	return nil
}

func (f *fakeTrigger) TriggerBatch(_ context.Context, cs []types.Container) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.FailSend {
		return errFake
	}

	f.batches = append(f.batches, cs)

	return nil
}

func (f *fakeTrigger) Close() error {
	f.closed = true

	return nil
}

func (f *fakeTrigger) delivered() ([]types.Container, [][]types.Container) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]types.Container(nil), f.singles...), append([][]types.Container(nil), f.batches...)
}

type observation struct {
	id  string
	err error
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveDelivery(kind, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{id: kind + "." + name, err: err})
}

func (r *recordingObserver) observations() []observation {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]observation(nil), r.obs...)
}
