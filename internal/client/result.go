package client

import "encoding/json"

// Result statuses. Exactly one Result is produced per operation.
const (
	StatusSuccess              = "success"
	StatusError                = "error"
	StatusRequiresConfirmation = "requires_confirmation"
	StatusRequiresQuestion     = "requires_question"
)

// Message is one entry in the conversation history carried by a Result.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// SessionSummary is a normalized session list entry.
type SessionSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	MessageCount int    `json:"message_count"`
	FirstMessage string `json:"first_message,omitempty"`
	ProjectPath  string `json:"project_path,omitempty"`
	ProjectID    string `json:"project_id,omitempty"`
}

// Result is the single structured outcome of one operation. The first four
// fields are always present; the rest depend on the status and command.
type Result struct {
	Status    string         `json:"status"`
	SessionID string         `json:"session_id"`
	Messages  []Message      `json:"messages"`
	Usage     map[string]any `json:"usage"`

	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`

	RequestID   string         `json:"request_id,omitempty"`
	RequestData map[string]any `json:"request_data,omitempty"`

	// Derived from RequestData when a tool confirmation is pending.
	ToolCall         any `json:"tool_call,omitempty"`
	AvailableOptions any `json:"available_options,omitempty"`

	// Derived from RequestData when a question is pending.
	Question    string `json:"question,omitempty"`
	Options     any    `json:"options,omitempty"`
	MultiSelect *bool  `json:"multi_select,omitempty"`

	Sessions []SessionSummary `json:"sessions,omitempty"`
	Total    *int             `json:"total,omitempty"`

	Agents          []map[string]any `json:"agents,omitempty"`
	CurrentAgentID  string           `json:"current_agent_id,omitempty"`
	AvailableAgents []map[string]any `json:"available_agents,omitempty"`

	RollbackPoints []map[string]any `json:"rollback_points,omitempty"`
	Deleted        *bool            `json:"deleted,omitempty"`
	Health         map[string]any   `json:"health,omitempty"`
}

// finalizeResult computes the status-dependent derived fields and makes the
// mandatory fields render as empty collections rather than null. It returns
// its argument for chaining.
func finalizeResult(r *Result) *Result {
	if r.Messages == nil {
		r.Messages = []Message{}
	}
	if r.Usage == nil {
		r.Usage = map[string]any{}
	}

	if r.RequestData == nil {
		return r
	}

	switch r.Status {
	case StatusRequiresConfirmation:
		for _, key := range []string{"tool_call", "toolCall", "tool"} {
			if v, ok := r.RequestData[key]; ok && v != nil {
				r.ToolCall = v
				break
			}
		}
		for _, key := range []string{"available_options", "availableOptions"} {
			if v, ok := r.RequestData[key]; ok && v != nil {
				r.AvailableOptions = v
				break
			}
		}
		if r.Message == "" {
			r.Message = "tool execution requires confirmation"
		}
	case StatusRequiresQuestion:
		r.Question = stringField(r.RequestData, "question")
		if v, ok := r.RequestData["options"]; ok && v != nil {
			r.Options = v
		}
		for _, key := range []string{"multi_select", "multiSelect"} {
			if v, ok := r.RequestData[key]; ok && v != nil {
				b := truthy(v)
				r.MultiSelect = &b
				break
			}
		}
		if r.Message == "" {
			r.Message = "the assistant needs an answer to continue"
		}
	}
	return r
}

// truthy applies JSON truthiness to a decoded value: false, 0, "" and
// empty arrays are false, any other present value is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	default:
		return v != nil
	}
}

// ExitCode maps the result status to the process exit code. Pending
// interactive requests are a normal outcome, not a failure.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess, StatusRequiresConfirmation, StatusRequiresQuestion:
		return 0
	default:
		return 1
	}
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// InvalidArgsResult builds the error result for a bad flag combination,
// produced before any network activity.
func InvalidArgsResult(message string) *Result {
	return finalizeResult(&Result{
		Status:    StatusError,
		ErrorCode: ErrCodeInvalidArgs,
		Message:   message,
	})
}
