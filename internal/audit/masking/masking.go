package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a value while keeping its last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskKeys returns a copy of input with the values under keys redacted.
// Nested maps are walked; keys match case-insensitively.
func MaskKeys(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}

	return maskMap(input, sensitive)
}

func maskMap(input map[string]any, sensitive map[string]struct{}) map[string]any {
	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[strings.ToLower(trimmedKey)]; ok {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			masked[trimmedKey] = maskMap(nested, sensitive)
			continue
		}
		masked[trimmedKey] = value
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case interface{ String() string }:
		return MaskSecret(cast.String())
	case nil:
		return nil
	default:
		return maskToken
	}
}
