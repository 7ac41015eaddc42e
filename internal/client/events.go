package client

import "encoding/json"

// EventKind identifies one kind of server-sent event. The server emits a
// closed set of kinds; anything else is ignored.
type EventKind string

const (
	EventConnected        EventKind = "connected"
	EventMessage          EventKind = "message"
	EventUsage            EventKind = "usage"
	EventToolConfirmation EventKind = "tool_confirmation_request"
	EventUserQuestion     EventKind = "user_question_request"
	EventAgentList        EventKind = "agent_list"
	EventAgentSwitched    EventKind = "agent_switched"
	EventRollbackResult   EventKind = "rollback_result"
	EventError            EventKind = "error"
	EventComplete         EventKind = "complete"
)

// Event is one record from the /events stream: a kind, an opaque payload,
// and an optional correlation id for interactive requests.
type Event struct {
	Type      EventKind       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// dataMap decodes the event payload into a map. A missing or non-object
// payload yields an empty map so handlers never see nil.
func (e Event) dataMap() map[string]any {
	if len(e.Data) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(e.Data, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// stringField returns data[key] if it is a non-empty string.
func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// mapSlice converts a decoded JSON array of objects into []map[string]any.
// Returns nil if v is not an array or contains no objects.
func mapSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
