package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// pendingRequest is an interactive request (tool confirmation or question)
// waiting for the caller to respond in a follow-up invocation.
type pendingRequest struct {
	status    string
	requestID string
	data      map[string]any
}

// serverError is an error reported on the stream or synthesized from a
// stream read failure.
type serverError struct {
	code            string
	message         string
	availableAgents []map[string]any
}

// terminalEvent records the first event whose kind was in the operation's
// terminal set.
type terminalEvent struct {
	kind EventKind
	data map[string]any
}

// operationState is the shared mutable state of one in-flight operation.
// The stream reader mutates it, the orchestrator reads it; a single mutex
// serializes both. The connected and terminal channels are close-once
// completion signals.
type operationState struct {
	mu sync.Mutex

	terminalKinds map[EventKind]bool
	imageNames    []string

	connectionID string
	sessionID    string

	messages        []Message
	assistantFinal  string
	assistantStream string
	usage           map[string]any

	pending        *pendingRequest
	errInfo        *serverError
	finalEvent     *terminalEvent
	agentList      map[string]any
	agentSwitched  map[string]any
	rollbackResult map[string]any

	connected     chan struct{}
	connectedOnce sync.Once
	terminal      chan struct{}
	terminalOnce  sync.Once

	log *slog.Logger
}

func newOperationState(sessionID string, terminalKinds []EventKind, imageNames []string, log *slog.Logger) *operationState {
	kinds := make(map[EventKind]bool, len(terminalKinds))
	for _, k := range terminalKinds {
		kinds[k] = true
	}
	return &operationState{
		terminalKinds: kinds,
		imageNames:    imageNames,
		sessionID:     sessionID,
		connected:     make(chan struct{}),
		terminal:      make(chan struct{}),
		log:           log,
	}
}

func (s *operationState) markConnected() {
	s.connectedOnce.Do(func() { close(s.connected) })
}

func (s *operationState) markTerminal() {
	s.terminalOnce.Do(func() { close(s.terminal) })
}

func (s *operationState) terminalReached() bool {
	select {
	case <-s.terminal:
		return true
	default:
		return false
	}
}

func (s *operationState) connectionIDValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

func (s *operationState) sessionIDValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *operationState) setSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// failStream records a synthetic stream error and signals completion. A
// later, protocol-level error already stored takes precedence.
func (s *operationState) failStream(err error) {
	s.mu.Lock()
	if s.errInfo == nil {
		s.errInfo = &serverError{
			code:    ErrCodeEventStreamError,
			message: fmt.Sprintf("reading the event stream failed: %v", err),
		}
	}
	s.mu.Unlock()
	s.markTerminal()
}

// handleEvent applies one event. Events are applied strictly in arrival
// order; "latest write wins" holds for usage and streaming content.
func (s *operationState) handleEvent(ev Event) {
	data := ev.dataMap()
	s.log.Debug("event received", "kind", ev.Type)

	switch ev.Type {
	case EventConnected:
		if id := stringField(data, "connectionId"); id != "" {
			s.mu.Lock()
			s.connectionID = id
			s.mu.Unlock()
		}
		s.markConnected()
		return

	case EventMessage:
		s.applyMessage(data)
		return

	case EventUsage:
		s.mu.Lock()
		s.usage = data
		s.mu.Unlock()
		return

	case EventToolConfirmation:
		s.mu.Lock()
		s.pending = &pendingRequest{status: StatusRequiresConfirmation, requestID: ev.RequestID, data: data}
		s.mu.Unlock()

	case EventUserQuestion:
		s.mu.Lock()
		s.pending = &pendingRequest{status: StatusRequiresQuestion, requestID: ev.RequestID, data: data}
		s.mu.Unlock()

	case EventAgentList:
		s.mu.Lock()
		s.agentList = data
		if _, ok := data["agents"].([]any); ok {
			// A definitive agent list supersedes any pending request.
			s.pending = nil
		}
		s.mu.Unlock()

	case EventAgentSwitched:
		s.mu.Lock()
		s.agentSwitched = data
		s.mu.Unlock()

	case EventRollbackResult:
		s.mu.Lock()
		s.rollbackResult = data
		s.mu.Unlock()

	case EventError:
		s.applyError(ev, data)

	case EventComplete:
		s.mu.Lock()
		if id := stringField(data, "sessionId"); id != "" {
			s.sessionID = id
		}
		if usage, ok := data["usage"].(map[string]any); ok {
			s.usage = usage
		}
		s.mu.Unlock()

	default:
		return
	}

	s.finishIfTerminal(ev.Type, data)
}

func (s *operationState) applyMessage(data map[string]any) {
	role := stringField(data, "role")
	content := anyToString(data["content"])

	s.mu.Lock()
	defer s.mu.Unlock()

	switch role {
	case "system":
		// A system message carrying a session id is the authoritative
		// binding; it never joins the history.
		if id := stringField(data, "sessionId"); id != "" {
			s.sessionID = id
		}
	case "user":
		if content == "" {
			return
		}
		msg := Message{Role: "user", Content: content}
		if len(s.imageNames) > 0 {
			msg.Images = append([]string(nil), s.imageNames...)
		}
		s.messages = append(s.messages, msg)
	case "assistant":
		if streaming, _ := data["streaming"].(bool); streaming {
			s.assistantStream = content
		} else {
			s.assistantFinal = content
		}
	}
}

func (s *operationState) applyError(ev Event, data map[string]any) {
	code := stringField(data, "errorCode")
	if code == "" {
		code = ErrCodeServerError
	}
	msg := stringField(data, "message")
	if msg == "" {
		// Some servers send a bare string as the error payload.
		var plain string
		if json.Unmarshal(ev.Data, &plain) == nil {
			msg = plain
		}
	}
	if msg == "" {
		msg = "the server reported an error"
	}

	s.mu.Lock()
	s.errInfo = &serverError{
		code:            code,
		message:         msg,
		availableAgents: mapSlice(data["availableAgents"]),
	}
	s.mu.Unlock()
}

// finishIfTerminal transitions to Terminal when the event kind is in the
// operation's terminal set. Only the first terminal event matters.
func (s *operationState) finishIfTerminal(kind EventKind, data map[string]any) {
	if !s.terminalKinds[kind] {
		return
	}
	s.mu.Lock()
	if s.finalEvent == nil {
		s.finalEvent = &terminalEvent{kind: kind, data: data}
	}
	s.mu.Unlock()
	s.markTerminal()
}

// buildResult converts the terminal state into the operation's Result.
// Precedence, first match wins: pending interactive request, stored error,
// typed terminal payload, generic success with merged history.
func (s *operationState) buildResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return &Result{
			Status:      s.pending.status,
			SessionID:   s.sessionID,
			Messages:    append([]Message(nil), s.messages...),
			Usage:       s.usage,
			RequestID:   s.pending.requestID,
			RequestData: s.pending.data,
		}
	}

	if s.errInfo != nil {
		return &Result{
			Status:          StatusError,
			SessionID:       s.sessionID,
			Messages:        append([]Message(nil), s.messages...),
			Usage:           s.usage,
			ErrorCode:       s.errInfo.code,
			Message:         s.errInfo.message,
			AvailableAgents: s.errInfo.availableAgents,
		}
	}

	if s.finalEvent != nil {
		switch {
		case s.finalEvent.kind == EventAgentList && s.agentList != nil:
			res := &Result{
				Status:         StatusSuccess,
				SessionID:      s.sessionID,
				Agents:         mapSlice(s.agentList["agents"]),
				CurrentAgentID: stringField(s.agentList, "currentAgentId"),
			}
			if res.Agents == nil {
				res.Agents = []map[string]any{}
			}
			return res

		case s.finalEvent.kind == EventAgentSwitched && s.agentSwitched != nil:
			msg := "agent switched"
			if name := stringField(s.agentSwitched, "agentName"); name != "" {
				msg = fmt.Sprintf("agent switched to %s", name)
			}
			return &Result{
				Status:         StatusSuccess,
				SessionID:      s.sessionID,
				CurrentAgentID: stringField(s.agentSwitched, "currentAgentId"),
				Message:        msg,
			}

		case s.finalEvent.kind == EventRollbackResult && s.rollbackResult != nil:
			sessionID := stringField(s.rollbackResult, "sessionId")
			if sessionID == "" {
				sessionID = s.sessionID
			}
			if success, _ := s.rollbackResult["success"].(bool); success {
				return &Result{
					Status:      StatusSuccess,
					SessionID:   sessionID,
					RequestData: s.rollbackResult,
					Message:     "rollback applied",
				}
			}
			msg := anyToString(s.rollbackResult["error"])
			if msg == "" {
				msg = "rollback failed"
			}
			return &Result{
				Status:      StatusError,
				SessionID:   sessionID,
				ErrorCode:   ErrCodeRollbackFailed,
				Message:     msg,
				RequestData: s.rollbackResult,
			}
		}
	}

	// Generic success: user history plus one synthesized assistant entry,
	// preferring final content over the streaming buffer.
	merged := append([]Message(nil), s.messages...)
	assistant := s.assistantFinal
	if assistant == "" {
		assistant = s.assistantStream
	}
	if assistant != "" {
		merged = append(merged, Message{Role: "assistant", Content: assistant})
	}
	return &Result{
		Status:    StatusSuccess,
		SessionID: s.sessionID,
		Messages:  merged,
		Usage:     s.usage,
	}
}

// anyToString renders a JSON value as a string the way a display layer
// would: strings pass through, nil is empty, everything else is printed.
func anyToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
