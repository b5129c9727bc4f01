// Package util provides small helpers shared by the trigger providers.
// It includes random identifier generation and container flattening.
//
// Key components:
//   - RandHex: Generates random lowercase hex strings (MQTT client ids).
//   - Flatten: Converts a value into a flat snake_case key map.
//   - EnvKey: Converts a flattened key into an environment variable name.
//
// Usage example:
//
//	clientID := "wud_" + util.RandHex(8)
//	flat, err := util.Flatten(container)
//
// The package uses crypto/rand for random generation.
package util
