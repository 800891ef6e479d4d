package agents

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of raw model output. Models often
// wrap the object in prose or code fences, so the slice between the
// first '{' and the last '}' is decoded. The second return value is
// false when no object could be decoded; callers fall back to treating
// the raw content as a single unstructured value.
func ExtractJSON(content string) (map[string]interface{}, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(content[start:end+1]), &data); err != nil {
		return nil, false
	}
	return data, true
}

// stringValue returns the string under key, or fallback.
func stringValue(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return fallback
}

// stringSlice returns the list of strings under key. Non-string
// elements are skipped.
func stringSlice(data map[string]interface{}, key string) []string {
	items, ok := data[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// floatValue returns the number under key, or fallback. JSON numbers
// decode as float64; numeric strings are not coerced.
func floatValue(data map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return fallback
}

// boolValue returns the boolean under key, or fallback.
func boolValue(data map[string]interface{}, key string, fallback bool) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return fallback
}
