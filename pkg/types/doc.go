// Package types defines the core data model and contracts shared by the trigger subsystem.
//
// Key components:
//   - Container: A monitored image instance as reported by a watcher.
//   - Watcher: A named polling unit with a running state.
//   - Store: Read-only query interface over the current containers.
//   - Trigger: Contract every notification backend implements.
//
// Usage example:
//
//	updates, err := store.Containers(types.ContainerFilter{UpdateAvailable: types.Bool(true)})
//	for _, c := range updates {
//	    _ = trigger.Trigger(ctx, c)
//	}
package types
