package cmd

import "testing"

func TestValidateRespondArgs(t *testing.T) {
	tests := []struct {
		name      string
		session   string
		requestID string
		wantError bool
	}{
		{"both set", "sess-1", "req-1", false},
		{"missing request id", "sess-1", "", true},
		{"missing session", "", "req-1", true},
		{"both missing", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateRespondArgs(tt.session, tt.requestID)
			if (msg != "") != tt.wantError {
				t.Errorf("validateRespondArgs(%q, %q) = %q", tt.session, tt.requestID, msg)
			}
		})
	}
}

func TestValidateAnswerArgs(t *testing.T) {
	tests := []struct {
		name      string
		session   string
		requestID string
		text      string
		wantError bool
	}{
		{"all set", "sess-1", "req-1", "yes", false},
		{"missing text", "sess-1", "req-1", "", true},
		{"missing request id", "sess-1", "", "yes", true},
		{"missing session", "", "req-1", "yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateAnswerArgs(tt.session, tt.requestID, tt.text)
			if (msg != "") != tt.wantError {
				t.Errorf("validateAnswerArgs = %q", msg)
			}
		})
	}
}

func TestValidateRollbackArgs(t *testing.T) {
	tests := []struct {
		name      string
		session   string
		files     bool
		selected  []string
		wantError bool
	}{
		{"plain rollback", "sess-1", false, nil, false},
		{"files with selection", "sess-1", true, []string{"a.go"}, false},
		{"selection without files", "sess-1", false, []string{"a.go"}, true},
		{"missing session", "", false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateRollbackArgs(tt.session, tt.files, tt.selected)
			if (msg != "") != tt.wantError {
				t.Errorf("validateRollbackArgs = %q", msg)
			}
		})
	}
}
