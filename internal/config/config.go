package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/trigger"
)

const (
	// TriggerPrefix starts every trigger setting variable.
	TriggerPrefix = "WUD_TRIGGER_"
	// FileSuffix marks a variable whose value is a path to the actual secret.
	FileSuffix = "__FILE"
	// keySeparator separates type, name and nested keys.
	keySeparator = "_"
)

// Triggers builds trigger configurations from environment entries in KEY=VALUE form.
//
// Entries without a type, a name and at least one key are ignored, which keeps
// application settings such as WUD_TRIGGER_BATCH_SCHEDULE out of the result.
// An instance with an unreadable secret file or conflicting keys is left out of the
// configurations and reported as a failure; the other instances are unaffected.
//
// Parameters:
//   - environ: Environment entries, typically os.Environ().
//
// Returns:
//   - trigger.Configurations: Settings keyed by type then name.
//   - []trigger.LoadFailure: Excluded instances, each wrapping trigger.ErrConfiguration.
func Triggers(environ []string) (trigger.Configurations, []trigger.LoadFailure) {
	configs := make(trigger.Configurations)
	broken := make(map[string]trigger.LoadFailure)

	// Sorted input makes conflict reports deterministic.
	entries := append([]string(nil), environ...)
	sort.Strings(entries)

	for _, entry := range entries {
		name, value, found := strings.Cut(entry, "=")
		if !found || !strings.HasPrefix(strings.ToUpper(name), TriggerPrefix) {
			continue
		}

		path := strings.ToLower(name[len(TriggerPrefix):])
		secretFile := strings.HasSuffix(path, strings.ToLower(FileSuffix))
		path = strings.TrimSuffix(path, strings.ToLower(FileSuffix))

		parts := strings.Split(path, keySeparator)
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
			logrus.WithField("variable", name).Debug("Ignoring variable without trigger type, name and key")

			continue
		}

		kind, instance := parts[0], parts[1]
		id := kind + "." + instance

		if _, failed := broken[id]; failed {
			continue
		}

		if configs[kind] == nil {
			configs[kind] = make(map[string]map[string]any)
		}

		if configs[kind][instance] == nil {
			configs[kind][instance] = make(map[string]any)
		}

		err := resolve(configs[kind][instance], parts[2:], value, secretFile)
		if err == nil {
			continue
		}

		err = fmt.Errorf("%w: %s: %w", trigger.ErrConfiguration, name, err)
		broken[id] = trigger.LoadFailure{Type: kind, Name: instance, Err: err}

		delete(configs[kind], instance)

		if len(configs[kind]) == 0 {
			delete(configs, kind)
		}
	}

	failures := make([]trigger.LoadFailure, 0, len(broken))
	for _, failure := range broken {
		logrus.WithFields(logrus.Fields{
			"type": failure.Type,
			"name": failure.Name,
		}).WithError(failure.Err).Error("Unable to read trigger configuration")

		failures = append(failures, failure)
	}

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Type+"."+failures[i].Name < failures[j].Type+"."+failures[j].Name
	})

	return configs, failures
}

// resolve reads the secret file when needed and stores the value under keys.
func resolve(target map[string]any, keys []string, value string, secretFile bool) error {
	if secretFile {
		secret, err := readSecretFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadSecretFile, err)
		}

		value = secret
	}

	if err := setNested(target, keys, value); err != nil {
		return fmt.Errorf("%w: %w", errConflictingKeys, err)
	}

	return nil
}

// setNested stores value under keys, creating intermediate maps.
func setNested(target map[string]any, keys []string, value string) error {
	for i, key := range keys {
		if i == len(keys)-1 {
			if _, isMap := target[key].(map[string]any); isMap {
				return fmt.Errorf("%q already holds nested settings", key)
			}

			target[key] = value

			return nil
		}

		child, exists := target[key]
		if !exists {
			nested := make(map[string]any)
			target[key] = nested
			target = nested

			continue
		}

		nested, isMap := child.(map[string]any)
		if !isMap {
			return fmt.Errorf("%q already holds a value", key)
		}

		target = nested
	}

	return nil
}

// readSecretFile returns the trimmed content of path.
func readSecretFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(content)), nil
}
