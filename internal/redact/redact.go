// Package redact masks sensitive attribute values by key-name heuristics.
package redact

import "strings"

// Sentinel replaces any value whose key matches the sensitive-key set.
const Sentinel = "[REDACTED]"

// DefaultSensitiveKeys are the substrings matched case-insensitively against
// attribute keys.
var DefaultSensitiveKeys = []string{
	"password", "secret", "key", "token", "credential", "private",
}

// Redactor walks attribute trees and masks sensitive values.
type Redactor struct {
	sensitiveKeys []string
}

// New creates a redactor with the given sensitive-key substrings. Empty
// input falls back to the default set.
func New(sensitiveKeys []string) *Redactor {
	if len(sensitiveKeys) == 0 {
		sensitiveKeys = DefaultSensitiveKeys
	}
	lowered := make([]string, len(sensitiveKeys))
	for i, k := range sensitiveKeys {
		lowered[i] = strings.ToLower(k)
	}
	return &Redactor{sensitiveKeys: lowered}
}

// IsSensitive reports whether the attribute key matches the sensitive set.
func (r *Redactor) IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, sk := range r.sensitiveKeys {
		if strings.Contains(lower, sk) {
			return true
		}
	}
	return false
}

// Redact returns a copy of the attribute map with sensitive values replaced
// by the sentinel. Nested maps and slices are redacted recursively; the
// input is never mutated. Redacting twice yields the same result as
// redacting once.
func (r *Redactor) Redact(attributes map[string]interface{}) map[string]interface{} {
	if attributes == nil {
		return nil
	}

	out := make(map[string]interface{}, len(attributes))
	for key, value := range attributes {
		if r.IsSensitive(key) {
			out[key] = Sentinel
			continue
		}
		out[key] = r.redactValue(value)
	}
	return out
}

func (r *Redactor) redactValue(value interface{}) interface{} {
	switch tv := value.(type) {
	case map[string]interface{}:
		return r.Redact(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, v := range tv {
			out[i] = r.redactValue(v)
		}
		return out
	default:
		return value
	}
}
