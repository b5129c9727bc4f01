package types

// Watcher is a named polling unit discovering containers on a host.
type Watcher struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}
