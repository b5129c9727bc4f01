package trigger

import (
	"github.com/sirupsen/logrus"
)

// Base carries the identity, common settings and logger shared by providers.
// Providers embed it and call SetCommon from their Configure method.
type Base struct {
	kind     string
	name     string
	common   Common
	renderer *Renderer
	log      *logrus.Entry
}

// NewBase creates the shared part of a provider instance.
func NewBase(kind, name string) Base {
	return Base{
		kind: kind,
		name: name,
		log: logrus.WithFields(logrus.Fields{
			"trigger": kind + "." + name,
		}),
	}
}

// Type returns the provider type.
func (b *Base) Type() string { return b.kind }

// Name returns the instance name.
func (b *Base) Name() string { return b.name }

// ID returns "type.name".
func (b *Base) ID() string { return b.kind + "." + b.name }

// Log returns the instance logger.
func (b *Base) Log() *logrus.Entry { return b.log }

// Settings returns the validated common settings.
func (b *Base) Settings() Common { return b.common }

// Renderer returns the compiled notification templates.
func (b *Base) Renderer() *Renderer { return b.renderer }

// SetCommon stores validated common settings and compiles their templates.
func (b *Base) SetCommon(common Common) error {
	renderer, err := NewRenderer(common)
	if err != nil {
		return err
	}

	b.common = common
	b.renderer = renderer

	return nil
}

// Configured is implemented by providers embedding Base.
type Configured interface {
	Settings() Common
}

// SelfSubscriber is implemented by providers that subscribe to bus events themselves
// during Init. The dispatcher does not wire single delivery for them.
type SelfSubscriber interface {
	SelfSubscribes() bool
}
