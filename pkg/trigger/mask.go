package trigger

// MaskedValue replaces every non-empty secret in masked configurations.
// Its length does not depend on the secret.
const MaskedValue = "********"

// Mask redacts a credential. Empty values stay empty so that "not configured" remains visible.
func Mask(value string) string {
	if value == "" {
		return ""
	}

	return MaskedValue
}
