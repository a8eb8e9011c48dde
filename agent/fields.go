package agent

import (
	"mailagent/models"
)

// Model responses are untrusted payloads: every field is optional and
// read defensively, with a stage-specific default when missing or
// wrongly typed.

// stringField reads a string value from a decoded response.
func stringField(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// floatField reads a numeric value from a decoded response.
func floatField(m map[string]interface{}, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// stringListField reads a list of strings, skipping non-string entries.
func stringListField(m map[string]interface{}, key string) []string {
	out := []string{}
	items, ok := m[key].([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// actionItemsField reads a list of action item objects.
func actionItemsField(m map[string]interface{}, key string) []models.ActionItem {
	out := []models.ActionItem{}
	items, ok := m[key].([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, models.ActionItem{
			Action:   stringField(obj, "action", ""),
			Owner:    stringField(obj, "owner", ""),
			Deadline: stringField(obj, "deadline", ""),
		})
	}
	return out
}
