package types

import "context"

// Trigger defines the contract of a notification backend.
type Trigger interface {
	Type() string // Provider type, e.g. "mqtt".
	Name() string // Instance name, unique per type.

	// Configure decodes, defaults and validates the raw configuration.
	// It is called once before Init; the result is immutable afterwards.
	Configure(raw map[string]any) error

	// MaskConfiguration returns the configuration with secrets redacted.
	MaskConfiguration() map[string]any

	// Init performs one-time setup such as opening connections.
	Init(ctx context.Context) error

	// Trigger delivers a notification for a single container.
	Trigger(ctx context.Context, container Container) error

	// TriggerBatch delivers one notification for several containers.
	TriggerBatch(ctx context.Context, containers []Container) error
}

// Closer is implemented by triggers holding resources that must be released.
type Closer interface {
	Close() error
}
