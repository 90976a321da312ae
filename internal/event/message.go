package event

import (
	"bytes"
	"encoding/json"

	"github.com/minisentry/minisentry/internal/model"
)

// ExtractMessage derives a single display message from an envelope, or nil
// when the payload carries nothing usable. Sources are tried in order and the
// first non-empty one wins:
//
//  1. the structured log entry's message, verbatim
//  2. the formatted message string
//  3. the first exception's value, in either of the two envelope shapes
//     ({"values":[{"value":...}]} or [{"value":...}])
//  4. the whole exception payload, stringified
//
// No message is ever synthesized from other fields.
func ExtractMessage(env *model.Envelope) *string {
	if env.LogEntry != nil && env.LogEntry.Message != "" {
		msg := env.LogEntry.Message
		return &msg
	}
	if env.Message != nil && env.Message.Formatted != "" {
		msg := env.Message.Formatted
		return &msg
	}
	if hasJSON(env.Exception) {
		msg := exceptionMessage(env.Exception)
		return &msg
	}
	return nil
}

func exceptionMessage(exception json.RawMessage) string {
	var parsed any
	if err := json.Unmarshal(exception, &parsed); err == nil {
		// Nested envelope shape: {"values": [{"value": "..."}]}.
		if obj, ok := parsed.(map[string]any); ok {
			if values, ok := obj["values"].([]any); ok {
				if v := firstValue(values); v != "" {
					return v
				}
			}
		}
		// Flat shape: [{"value": "..."}].
		if values, ok := parsed.([]any); ok {
			if v := firstValue(values); v != "" {
				return v
			}
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, exception); err != nil {
		return string(exception)
	}
	return buf.String()
}

// firstValue returns the "value" string of the first entry, or "".
func firstValue(values []any) string {
	if len(values) == 0 {
		return ""
	}
	entry, ok := values[0].(map[string]any)
	if !ok {
		return ""
	}
	v, _ := entry["value"].(string)
	return v
}

// hasJSON reports whether a raw field is present and not JSON null.
func hasJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}
