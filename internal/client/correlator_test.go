package client

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestState(sessionID string, terminal []EventKind, imageNames ...string) *operationState {
	return newOperationState(sessionID, terminal, imageNames, testLogger())
}

func evt(kind EventKind, data string, requestID string) Event {
	return Event{Type: kind, Data: json.RawMessage(data), RequestID: requestID}
}

func TestConnectedEventCapturesConnectionID(t *testing.T) {
	s := newTestState("", nil)

	s.handleEvent(evt(EventConnected, `{"connectionId":"conn-1"}`, ""))

	select {
	case <-s.connected:
	default:
		t.Fatal("connected signal not set")
	}
	if got := s.connectionIDValue(); got != "conn-1" {
		t.Errorf("connectionID = %q, want conn-1", got)
	}
	if s.terminalReached() {
		t.Error("connected must not terminate the operation")
	}
}

func TestSystemMessageAdoptsSessionWithoutHistory(t *testing.T) {
	s := newTestState("", nil)

	s.handleEvent(evt(EventMessage, `{"role":"system","content":"bound","sessionId":"sess-9"}`, ""))

	if got := s.sessionIDValue(); got != "sess-9" {
		t.Errorf("sessionID = %q, want sess-9", got)
	}
	res := s.buildResult()
	if len(res.Messages) != 0 {
		t.Errorf("system message must not join history, got %d entries", len(res.Messages))
	}
}

func TestUserMessageAppendsWithImageNames(t *testing.T) {
	s := newTestState("", nil, "cat.png", "dog.jpg")

	s.handleEvent(evt(EventMessage, `{"role":"user","content":"look at these"}`, ""))
	s.handleEvent(evt(EventMessage, `{"role":"user","content":""}`, ""))

	res := s.buildResult()
	if len(res.Messages) != 1 {
		t.Fatalf("history length = %d, want 1 (empty user content is dropped)", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Role != "user" || msg.Content != "look at these" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(msg.Images) != 2 || msg.Images[0] != "cat.png" {
		t.Errorf("image names = %v, want [cat.png dog.jpg]", msg.Images)
	}
}

func TestAssistantStreamingLatestWriteWins(t *testing.T) {
	s := newTestState("", []EventKind{EventComplete})

	s.handleEvent(evt(EventConnected, `{"connectionId":"c"}`, ""))
	s.handleEvent(evt(EventMessage, `{"role":"user","content":"hi"}`, ""))
	s.handleEvent(evt(EventMessage, `{"role":"assistant","content":"a","streaming":true}`, ""))
	s.handleEvent(evt(EventMessage, `{"role":"assistant","content":"ab","streaming":true}`, ""))
	s.handleEvent(evt(EventComplete, `{}`, ""))

	if !s.terminalReached() {
		t.Fatal("complete should be terminal")
	}
	res := s.buildResult()
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("history = %+v, want one user and one assistant entry", res.Messages)
	}
	if res.Messages[0].Role != "user" || res.Messages[1].Role != "assistant" {
		t.Errorf("history order wrong: %+v", res.Messages)
	}
	if res.Messages[1].Content != "ab" {
		t.Errorf("assistant content = %q, want ab (last streaming write)", res.Messages[1].Content)
	}
}

func TestAssistantFinalContentBeatsStreaming(t *testing.T) {
	s := newTestState("", nil)

	s.handleEvent(evt(EventMessage, `{"role":"assistant","content":"partial","streaming":true}`, ""))
	s.handleEvent(evt(EventMessage, `{"role":"assistant","content":"full answer"}`, ""))

	res := s.buildResult()
	if got := res.Messages[0].Content; got != "full answer" {
		t.Errorf("assistant content = %q, want final over streaming", got)
	}
}

func TestUsageLatestWriteWins(t *testing.T) {
	s := newTestState("", nil)

	s.handleEvent(evt(EventUsage, `{"tokens":1}`, ""))
	s.handleEvent(evt(EventUsage, `{"tokens":2}`, ""))

	res := s.buildResult()
	if got := res.Usage["tokens"]; got != float64(2) {
		t.Errorf("usage tokens = %v, want 2", got)
	}
}

func TestToolConfirmationBecomesPendingAndTerminal(t *testing.T) {
	s := newTestState("", []EventKind{EventToolConfirmation})

	s.handleEvent(evt(EventToolConfirmation, `{"tool_call":{"name":"rm"},"available_options":["yes","no"]}`, "req-42"))

	if !s.terminalReached() {
		t.Fatal("tool_confirmation_request in the terminal set must terminate")
	}
	res := s.buildResult()
	if res.Status != StatusRequiresConfirmation {
		t.Fatalf("status = %q, want requires_confirmation", res.Status)
	}
	if res.RequestID != "req-42" {
		t.Errorf("request_id = %q, want req-42", res.RequestID)
	}
	if _, ok := res.RequestData["tool_call"]; !ok {
		t.Error("raw request payload not preserved")
	}
}

func TestNonTerminalKindDoesNotFinish(t *testing.T) {
	s := newTestState("", []EventKind{EventComplete})

	s.handleEvent(evt(EventToolConfirmation, `{}`, "req"))
	s.handleEvent(evt(EventUsage, `{"t":1}`, ""))

	if s.terminalReached() {
		t.Error("events outside the terminal set must not terminate")
	}
}

func TestErrorEventDefaults(t *testing.T) {
	s := newTestState("", []EventKind{EventError})

	s.handleEvent(evt(EventError, `{}`, ""))

	res := s.buildResult()
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if res.ErrorCode != ErrCodeServerError {
		t.Errorf("error_code = %q, want server_error default", res.ErrorCode)
	}
	if res.Message == "" {
		t.Error("message must default to something readable")
	}
}

func TestErrorEventCarriesAvailableAgents(t *testing.T) {
	s := newTestState("", []EventKind{EventError})

	s.handleEvent(evt(EventError, `{"errorCode":"unknown_agent","message":"no such agent","availableAgents":[{"id":"a1"},{"id":"a2"}]}`, ""))

	res := s.buildResult()
	if res.ErrorCode != "unknown_agent" {
		t.Errorf("error_code = %q", res.ErrorCode)
	}
	if len(res.AvailableAgents) != 2 {
		t.Errorf("available_agents = %v, want 2 entries", res.AvailableAgents)
	}
}

func TestCompleteAdoptsSessionAndUsage(t *testing.T) {
	s := newTestState("old", []EventKind{EventComplete})

	s.handleEvent(evt(EventComplete, `{"sessionId":"new","usage":{"tokens":7}}`, ""))

	res := s.buildResult()
	if res.SessionID != "new" {
		t.Errorf("session_id = %q, want new", res.SessionID)
	}
	if res.Usage["tokens"] != float64(7) {
		t.Errorf("usage = %v", res.Usage)
	}
}

func TestPendingRequestBeatsStoredError(t *testing.T) {
	s := newTestState("", []EventKind{EventError})

	s.handleEvent(evt(EventUserQuestion, `{"question":"which one?"}`, "req-q"))
	s.handleEvent(evt(EventError, `{"message":"later failure"}`, ""))

	res := s.buildResult()
	if res.Status != StatusRequiresQuestion {
		t.Errorf("status = %q, pending request must win over the error", res.Status)
	}
}

func TestAgentListClearsPendingAndBuildsSuccess(t *testing.T) {
	s := newTestState("", []EventKind{EventAgentList})

	s.handleEvent(evt(EventToolConfirmation, `{}`, "req"))
	s.handleEvent(evt(EventAgentList, `{"agents":[{"id":"a1","name":"coder"}],"currentAgentId":"a1"}`, ""))

	res := s.buildResult()
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if len(res.Agents) != 1 || res.CurrentAgentID != "a1" {
		t.Errorf("agents = %v current = %q", res.Agents, res.CurrentAgentID)
	}
}

func TestAgentSwitchedResult(t *testing.T) {
	s := newTestState("sess", []EventKind{EventAgentSwitched})

	s.handleEvent(evt(EventAgentSwitched, `{"currentAgentId":"a2","agentName":"reviewer"}`, ""))

	res := s.buildResult()
	if res.Status != StatusSuccess || res.CurrentAgentID != "a2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Message == "" {
		t.Error("switch result should say which agent is active")
	}
}

func TestRollbackFailureInvertsToError(t *testing.T) {
	s := newTestState("fallback", []EventKind{EventRollbackResult})

	s.handleEvent(evt(EventRollbackResult, `{"success":false,"error":"conflict","sessionId":"s1"}`, ""))

	res := s.buildResult()
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if res.ErrorCode != ErrCodeRollbackFailed {
		t.Errorf("error_code = %q, want rollback_failed", res.ErrorCode)
	}
	if res.Message != "conflict" {
		t.Errorf("message = %q, want the server's error text", res.Message)
	}
	if res.SessionID != "s1" {
		t.Errorf("session_id = %q, want the one from the event", res.SessionID)
	}
}

func TestRollbackSuccess(t *testing.T) {
	s := newTestState("", []EventKind{EventRollbackResult})

	s.handleEvent(evt(EventRollbackResult, `{"success":true,"sessionId":"s1"}`, ""))

	res := s.buildResult()
	if res.Status != StatusSuccess || res.SessionID != "s1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.RequestData == nil {
		t.Error("rollback payload should be carried on the result")
	}
}

func TestFailStreamKeepsExistingError(t *testing.T) {
	s := newTestState("", []EventKind{EventError})

	s.handleEvent(evt(EventError, `{"errorCode":"server_error","message":"real failure"}`, ""))
	s.failStream(errors.New("read: connection reset"))

	if !s.terminalReached() {
		t.Fatal("failStream must signal completion")
	}
	res := s.buildResult()
	if res.ErrorCode != ErrCodeServerError || res.Message != "real failure" {
		t.Errorf("stream failure must not mask the stored error, got %+v", res)
	}
}

func TestFailStreamRecordsSyntheticError(t *testing.T) {
	s := newTestState("", nil)

	s.failStream(errors.New("boom"))

	res := s.buildResult()
	if res.ErrorCode != ErrCodeEventStreamError {
		t.Errorf("error_code = %q, want event_stream_error", res.ErrorCode)
	}
}

func TestUnknownEventKindIgnored(t *testing.T) {
	s := newTestState("", []EventKind{EventComplete})

	s.handleEvent(evt(EventKind("heartbeat"), `{"ok":true}`, ""))

	if s.terminalReached() {
		t.Error("unknown kinds must be ignored")
	}
}

func TestMarkTerminalIsIdempotent(t *testing.T) {
	s := newTestState("", nil)

	s.markTerminal()
	s.markTerminal()

	if !s.terminalReached() {
		t.Fatal("terminal signal lost")
	}
}
