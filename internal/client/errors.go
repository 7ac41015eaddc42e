package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Error codes carried in Result.ErrorCode.
const (
	ErrCodeInvalidArgs      = "invalid_args"
	ErrCodeConnectionFailed = "connection_failed"
	ErrCodeTimeout          = "timeout"
	ErrCodeSessionNotFound  = "session_not_found"
	ErrCodeRollbackFailed   = "rollback_failed"
	ErrCodeEventStreamError = "event_stream_error"
	ErrCodeServerError      = "server_error"
	ErrCodeUnexpected       = "unexpected_error"
)

// statusError is returned by the transport for HTTP responses with a
// non-2xx status.
type statusError struct {
	Status int
	Body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.Status, e.message())
}

// message extracts the human-readable error from the response body,
// falling back to the bare status.
func (e *statusError) message() string {
	var body map[string]any
	if json.Unmarshal(e.Body, &body) == nil {
		if msg := stringField(body, "error"); msg != "" {
			return msg
		}
		if msg := stringField(body, "message"); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// timeoutError marks an expired connect or operation deadline.
type timeoutError struct {
	msg string
}

func (e *timeoutError) Error() string { return e.msg }

// rejectedError marks a response whose success flag was false.
type rejectedError struct {
	action string
	body   map[string]any
}

func (e *rejectedError) Error() string {
	if msg := stringField(e.body, "error"); msg != "" {
		return fmt.Sprintf("%s: %s", e.action, msg)
	}
	return fmt.Sprintf("%s: %v", e.action, e.body)
}

// failureResult converts an operation failure into a Result. Classification
// order matters: deadlines and HTTP status failures carry more specific
// codes than a generic unreachable transport.
func (c *Client) failureResult(sessionID string, err error) *Result {
	var tErr *timeoutError
	var sErr *statusError
	var rErr *rejectedError

	switch {
	case errors.As(err, &tErr):
		return &Result{
			Status:    StatusError,
			SessionID: sessionID,
			ErrorCode: ErrCodeTimeout,
			Message:   err.Error(),
		}
	case errors.As(err, &sErr):
		return c.httpErrorResult(sessionID, sErr)
	case errors.As(err, &rErr):
		return &Result{
			Status:    StatusError,
			SessionID: sessionID,
			ErrorCode: ErrCodeServerError,
			Message:   err.Error(),
		}
	case isNetworkError(err):
		return c.connectionFailedResult(sessionID, err)
	default:
		return &Result{
			Status:    StatusError,
			SessionID: sessionID,
			ErrorCode: ErrCodeUnexpected,
			Message:   err.Error(),
		}
	}
}

// httpErrorResult maps an HTTP status failure to the error taxonomy. A 400
// or 404 mentioning a missing session means the id is stale or unknown; a
// "No active connection" body means the server is up but has no SSE
// connection bound to the session.
func (c *Client) httpErrorResult(sessionID string, sErr *statusError) *Result {
	msg := sErr.message()

	if (sErr.Status == 404 || sErr.Status == 400) && strings.Contains(msg, "Session not found") {
		return &Result{
			Status:    StatusError,
			SessionID: sessionID,
			ErrorCode: ErrCodeSessionNotFound,
			Message:   fmt.Sprintf("session does not exist: %s", msg),
		}
	}
	if strings.Contains(msg, "No active connection") {
		return &Result{
			Status:     StatusError,
			SessionID:  sessionID,
			ErrorCode:  ErrCodeConnectionFailed,
			Message:    msg,
			Suggestion: c.serverSuggestion(),
		}
	}
	return &Result{
		Status:    StatusError,
		SessionID: sessionID,
		ErrorCode: ErrCodeServerError,
		Message:   msg,
	}
}

func (c *Client) connectionFailedResult(sessionID string, err error) *Result {
	return &Result{
		Status:     StatusError,
		SessionID:  sessionID,
		ErrorCode:  ErrCodeConnectionFailed,
		Message:    fmt.Sprintf("cannot reach the Snow server at %s:%d: %v", c.host, c.port, err),
		Suggestion: c.serverSuggestion(),
	}
}

func (c *Client) serverSuggestion() string {
	return fmt.Sprintf("make sure the SSE server is running: snow --sse --sse-port %d", c.port)
}

func isNetworkError(err error) bool {
	var uErr *url.Error
	var opErr *net.OpError
	return errors.As(err, &uErr) || errors.As(err, &opErr)
}
