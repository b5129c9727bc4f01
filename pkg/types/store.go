package types

// ContainerFilter narrows a store query. Nil fields match everything.
type ContainerFilter struct {
	Watcher         *string
	UpdateAvailable *bool
}

// Match reports whether the container passes the filter.
func (f ContainerFilter) Match(c Container) bool {
	if f.Watcher != nil && c.Watcher != *f.Watcher {
		return false
	}

	if f.UpdateAvailable != nil && c.UpdateAvailable != *f.UpdateAvailable {
		return false
	}

	return true
}

// Store is the read-only view of the container registry consumed by triggers.
type Store interface {
	// Containers returns a snapshot of the containers matching the filter.
	Containers(filter ContainerFilter) []Container
}

// String returns a pointer to s, for use in filters.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for use in filters.
func Bool(b bool) *bool { return &b }
