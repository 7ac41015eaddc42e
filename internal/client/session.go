package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"
)

// bindSession re-binds an existing session to the current SSE connection so
// server-pushed events route here instead of a stale prior connection.
// Failures are logged and tolerated; the command is still sent.
func (c *Client) bindSession(ctx context.Context, state *operationState, sessionID string, log *slog.Logger) {
	connectionID := state.connectionIDValue()
	if connectionID == "" || sessionID == "" {
		return
	}

	body, err := c.tr.postJSON(ctx, "/session/load", map[string]any{
		"sessionId":    sessionID,
		"connectionId": connectionID,
	}, c.connectTimeout)
	if err != nil {
		log.Debug("rebinding session to this connection failed", "error", err)
		return
	}
	if ok, _ := body["success"].(bool); !ok {
		log.Debug("session rebind was not accepted")
		return
	}
	if session, ok := body["session"].(map[string]any); ok {
		if id := stringField(session, "id"); id != "" {
			state.setSessionID(id)
		}
	}
}

// ensureSession creates a session bound to the current connection id, so
// the server routes the new session's events unambiguously. Returns the
// session id, or "" when creation failed.
func (c *Client) ensureSession(ctx context.Context, state *operationState, log *slog.Logger) string {
	connectionID := state.connectionIDValue()
	if connectionID == "" {
		return ""
	}

	body, err := c.tr.postJSON(ctx, "/session/create", map[string]any{
		"connectionId": connectionID,
	}, c.connectTimeout)
	if err != nil {
		log.Debug("session creation failed", "error", err)
		return ""
	}
	if ok, _ := body["success"].(bool); !ok {
		log.Debug("session creation was not accepted")
		return ""
	}
	session, ok := body["session"].(map[string]any)
	if !ok {
		log.Debug("session creation response carried no session object")
		return ""
	}
	id := stringField(session, "id")
	if id == "" {
		log.Debug("session creation response carried no session id")
		return ""
	}
	state.setSessionID(id)
	return id
}

// ListSessions fetches one page of the session list.
func (c *Client) ListSessions(ctx context.Context, page, pageSize int, searchQuery string) *Result {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	if searchQuery != "" {
		query.Set("q", searchQuery)
	}

	body, err := c.tr.getJSON(ctx, "/session/list", query, c.requestTimeout)
	if err != nil {
		return finalizeResult(c.failureResult("", err))
	}
	if ok, _ := body["success"].(bool); !ok {
		return finalizeResult(c.failureResult("", &rejectedError{action: "listing sessions failed", body: body}))
	}

	sessions := []SessionSummary{}
	for _, item := range mapSlice(body["sessions"]) {
		sessions = append(sessions, normalizeSession(item))
	}
	total := len(sessions)
	if v, ok := body["total"].(float64); ok {
		total = int(v)
	}
	return finalizeResult(&Result{
		Status:   StatusSuccess,
		Sessions: sessions,
		Total:    &total,
	})
}

// LoadSession loads a stored session on the server.
func (c *Client) LoadSession(ctx context.Context, sessionID string) *Result {
	body, err := c.tr.postJSON(ctx, "/session/load", map[string]any{
		"sessionId": sessionID,
	}, c.requestTimeout)
	if err != nil {
		return finalizeResult(c.failureResult(sessionID, err))
	}
	if ok, _ := body["success"].(bool); !ok {
		return finalizeResult(c.failureResult(sessionID, &rejectedError{action: "loading the session failed", body: body}))
	}

	loadedID := sessionID
	if session, ok := body["session"].(map[string]any); ok {
		if id := stringField(session, "id"); id != "" {
			loadedID = id
		}
	}
	return finalizeResult(&Result{
		Status:    StatusSuccess,
		SessionID: loadedID,
		Message:   "session loaded",
	})
}

// DeleteSession deletes a stored session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) *Result {
	body, err := c.tr.deleteJSON(ctx, "/session/"+url.PathEscape(sessionID), c.requestTimeout)
	if err != nil {
		return finalizeResult(c.failureResult(sessionID, err))
	}
	if ok, _ := body["success"].(bool); !ok {
		return finalizeResult(c.failureResult(sessionID, &rejectedError{action: "deleting the session failed", body: body}))
	}
	deleted, _ := body["deleted"].(bool)
	return finalizeResult(&Result{
		Status:    StatusSuccess,
		SessionID: sessionID,
		Deleted:   &deleted,
		Message:   "session deleted",
	})
}

// ListRollbackPoints fetches the rollback points available for a session.
func (c *Client) ListRollbackPoints(ctx context.Context, sessionID string) *Result {
	query := url.Values{}
	query.Set("sessionId", sessionID)

	body, err := c.tr.getJSON(ctx, "/session/rollback-points", query, c.requestTimeout)
	if err != nil {
		return finalizeResult(c.failureResult(sessionID, err))
	}
	if ok, _ := body["success"].(bool); !ok {
		return finalizeResult(c.failureResult(sessionID, &rejectedError{action: "listing rollback points failed", body: body}))
	}

	points := mapSlice(body["points"])
	if points == nil {
		points = []map[string]any{}
	}
	total := len(points)
	return finalizeResult(&Result{
		Status:         StatusSuccess,
		SessionID:      sessionID,
		RollbackPoints: points,
		Total:          &total,
	})
}

// normalizeSession maps a server session list item to the stable output
// shape, converting millisecond epochs to RFC 3339.
func normalizeSession(item map[string]any) SessionSummary {
	first := stringField(item, "summary")
	if first == "" {
		first = stringField(item, "title")
	}
	count := 0
	if v, ok := item["messageCount"].(float64); ok {
		count = int(v)
	}
	return SessionSummary{
		ID:           stringField(item, "id"),
		CreatedAt:    formatTimestamp(item["createdAt"]),
		UpdatedAt:    formatTimestamp(item["updatedAt"]),
		MessageCount: count,
		FirstMessage: first,
		ProjectPath:  stringField(item, "projectPath"),
		ProjectID:    stringField(item, "projectId"),
	}
}

// formatTimestamp renders a millisecond epoch as RFC 3339 UTC. Anything
// unparseable passes through as text.
func formatTimestamp(v any) string {
	var millis int64
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		millis = int64(val)
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return val
		}
		millis = parsed
	default:
		return fmt.Sprint(val)
	}
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}
