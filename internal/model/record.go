package model

import "encoding/json"

// Record is the canonical, persisted form of an ingested event.
type Record struct {
	ID          int64           `json:"id"`
	ProjectID   int64           `json:"project_id"`
	Timestamp   int64           `json:"timestamp"`
	Message     *string         `json:"message"`
	Level       string          `json:"level"`
	Environment *string         `json:"environment"`
	EventID     string          `json:"event_id"`
	Platform    string          `json:"platform"`
	ServerName  *string         `json:"server_name"`
	SDK         json.RawMessage `json:"sdk"`
	User        json.RawMessage `json:"user"`
	Tags        json.RawMessage `json:"tags"`
	Contexts    json.RawMessage `json:"contexts,omitempty"`
	Extra       json.RawMessage `json:"extra"`
	Breadcrumbs json.RawMessage `json:"breadcrumbs"`
	Exception   json.RawMessage `json:"exception,omitempty"`
	Unknown     json.RawMessage `json:"unknown,omitempty"`
}
