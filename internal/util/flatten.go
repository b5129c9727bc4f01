package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// flattenSeparator joins nested keys.
const flattenSeparator = "_"

// Flatten converts v into a single-level map keyed by snake_case paths.
//
// The value is first marshaled through its JSON representation, so JSON tags decide
// the key names: a field tagged "displayName" nested under "image" becomes
// "image_display_name". Leaf values keep their JSON type (string, bool, float64).
//
// Parameters:
//   - v: Value to flatten, typically a types.Container.
//
// Returns:
//   - map[string]any: Flattened fields.
//   - error: Non-nil if v cannot be marshaled.
func Flatten(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value for flattening: %w", err)
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode value for flattening: %w", err)
	}

	flat := make(map[string]any)
	flattenInto(flat, "", tree)

	return flat, nil
}

func flattenInto(flat map[string]any, prefix string, node any) {
	object, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			flat[prefix] = node
		}

		return
	}

	for key, value := range object {
		path := SnakeCase(key)
		if prefix != "" {
			path = prefix + flattenSeparator + path
		}

		flattenInto(flat, path, value)
	}
}

// SnakeCase converts a camelCase identifier into snake_case.
//
// Parameters:
//   - s: Identifier such as "updateAvailable".
//
// Returns:
//   - string: Identifier such as "update_available".
func SnakeCase(s string) string {
	var builder strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])

			if prevLower || nextLower {
				builder.WriteRune('_')
			}

			builder.WriteRune(unicode.ToLower(r))

			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

// EnvKey converts a flattened key into an environment variable name.
//
// Parameters:
//   - key: Flattened key such as "image_tag_value".
//
// Returns:
//   - string: Upper-cased name such as "IMAGE_TAG_VALUE".
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Stringify renders a flattened leaf value for text transports.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
