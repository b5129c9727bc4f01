// Package trigger implements the contract shared by every notification backend and the
// machinery that wires backends to the event bus.
//
// Key components:
//   - Base and Common: Settings every provider accepts (mode, threshold, templates).
//   - Decode and Validate: Configuration decoding (mapstructure) and struct-tag validation.
//   - Mask: Redaction of credential-bearing values.
//   - Registry: Type-keyed provider factories and startup loading with failure isolation.
//   - Dispatcher: Event-driven single delivery and scheduled batch delivery.
//
// Usage example:
//
//	registry := trigger.NewRegistry()
//	registry.Register(command.Type, command.New)
//	triggers, report := registry.Load(ctx, configs, trigger.Dependencies{Bus: bus, Store: store})
//	dispatcher := trigger.NewDispatcher(bus, store, triggers)
//	dispatcher.Start()
//	defer dispatcher.Stop()
//
// Providers live in sub-packages (command, gotify, mqtt) and log through logrus.
package trigger
