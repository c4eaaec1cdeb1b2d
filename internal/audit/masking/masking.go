// Package masking redacts secrets before they are written to the audit trail.
package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = []string{"password", "secret", "token", "api_key", "authorization"}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
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

// MaskSensitive returns a copy of input with the string values of sensitive
// keys masked. Nested maps are walked.
func MaskSensitive(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		switch cast := value.(type) {
		case map[string]any:
			out[trimmedKey] = MaskSensitive(cast)
		case string:
			if isSensitive(trimmedKey) {
				out[trimmedKey] = MaskSecret(cast)
			} else {
				out[trimmedKey] = cast
			}
		default:
			out[trimmedKey] = value
		}
	}
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, candidate := range sensitiveKeys {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}
