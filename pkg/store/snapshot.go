package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/types"
)

// errReadSnapshot indicates a state file that could not be read or decoded.
var errReadSnapshot = errors.New("failed to read state snapshot")

// Snapshot is the full watcher and container state reported by an external watcher engine.
type Snapshot struct {
	Watchers   []types.Watcher   `json:"watchers"`
	Containers []types.Container `json:"containers"`
}

// ApplyReport counts the changes made by Apply.
type ApplyReport struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
}

// LoadSnapshot reads a JSON snapshot from path.
func LoadSnapshot(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", errReadSnapshot, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %w", errReadSnapshot, path, err)
	}

	return snapshot, nil
}

// Apply reconciles the store with snapshot.
//
// Containers missing from the snapshot are removed, new ones added, and changed ones
// updated. Identical containers emit nothing, so applying the same snapshot twice is a no-op.
// Watchers are set to their reported state; unknown watchers are left as they are.
func (m *Memory) Apply(ctx context.Context, snapshot Snapshot) ApplyReport {
	var report ApplyReport

	for _, watcher := range snapshot.Watchers {
		m.SetWatcherRunning(ctx, watcher.Name, watcher.Running)
	}

	wanted := make(map[string]struct{}, len(snapshot.Containers))

	for _, c := range snapshot.Containers {
		wanted[key(c)] = struct{}{}

		m.mu.RLock()
		stored, exists := m.containers[key(c)]
		m.mu.RUnlock()

		switch {
		case !exists:
			report.Added++
		case reflect.DeepEqual(stored, c):
			report.Unchanged++

			continue
		default:
			report.Updated++
		}

		m.Upsert(ctx, c)
	}

	for _, c := range m.Containers(types.ContainerFilter{}) {
		if _, keep := wanted[key(c)]; keep {
			continue
		}

		if m.Remove(ctx, c) {
			report.Removed++
		}
	}

	logrus.WithFields(logrus.Fields{
		"added":     report.Added,
		"updated":   report.Updated,
		"removed":   report.Removed,
		"unchanged": report.Unchanged,
	}).Debug("Applied state snapshot")

	return report
}
