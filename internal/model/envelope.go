package model

import "encoding/json"

// LogEntry is the structured log entry shape some SDKs send instead of a
// formatted message.
type LogEntry struct {
	Message string `json:"message"`
}

// FormattedMessage is the message object shape with a pre-rendered string.
type FormattedMessage struct {
	Formatted string          `json:"formatted"`
	Message   json.RawMessage `json:"message,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Envelope is one raw event payload as submitted by a client. Known fields
// are decoded; everything else lands in Unknown and is carried through the
// pipeline untouched. Open sub-documents (sdk, user, exception, ...) stay
// raw JSON because clients disagree on their shape.
type Envelope struct {
	Timestamp   json.RawMessage   `json:"timestamp" validate:"required"`
	EventID     string            `json:"event_id" validate:"required"`
	Platform    string            `json:"platform" validate:"required"`
	SDK         json.RawMessage   `json:"sdk" validate:"required"`
	LogEntry    *LogEntry         `json:"logentry,omitempty"`
	Message     *FormattedMessage `json:"message,omitempty"`
	Level       string            `json:"level,omitempty"`
	Environment *string           `json:"environment,omitempty"`
	ServerName  *string           `json:"server_name,omitempty"`
	Exception   json.RawMessage   `json:"exception,omitempty"`
	User        json.RawMessage   `json:"user,omitempty"`
	Tags        json.RawMessage   `json:"tags,omitempty"`
	Contexts    json.RawMessage   `json:"contexts,omitempty"`
	Extra       json.RawMessage   `json:"extra,omitempty"`
	Breadcrumbs json.RawMessage   `json:"breadcrumbs,omitempty"`
	Fingerprint []string          `json:"fingerprint,omitempty"`

	// Unknown holds every top-level field not listed above.
	Unknown map[string]json.RawMessage `json:"-"`
}

// knownEnvelopeFields are the top-level keys decoded into named fields.
var knownEnvelopeFields = map[string]struct{}{
	"timestamp":   {},
	"event_id":    {},
	"platform":    {},
	"sdk":         {},
	"logentry":    {},
	"message":     {},
	"level":       {},
	"environment": {},
	"server_name": {},
	"exception":   {},
	"user":        {},
	"tags":        {},
	"contexts":    {},
	"extra":       {},
	"breadcrumbs": {},
	"fingerprint": {},
}

// UnmarshalJSON decodes the known fields and collects the rest into Unknown.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type plain Envelope
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if _, ok := knownEnvelopeFields[k]; ok {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		p.Unknown = all
	}

	*e = Envelope(p)
	return nil
}
