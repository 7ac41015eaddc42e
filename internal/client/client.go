package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/snowcli/snowctl/internal/logging"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultRequestTimeout = time.Hour

	// Teardown bounds: a misbehaving server must never stall the caller.
	readerJoinTimeout  = time.Second
	streamCloseTimeout = 500 * time.Millisecond
)

// chatTerminalKinds end the wait for chat-style commands: either the turn
// completes, the server asks the user something, or it fails.
var chatTerminalKinds = []EventKind{
	EventComplete,
	EventToolConfirmation,
	EventUserQuestion,
	EventError,
}

// Client talks to one Snow server. It is stateless across operations; each
// public method runs exactly one operation and returns exactly one Result.
type Client struct {
	host           string
	port           int
	connectTimeout time.Duration
	requestTimeout time.Duration
	tr             *transport
	log            *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithConnectTimeout bounds the connect/handshake phase (stream dial,
// waiting for the connected event, session bind calls).
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithRequestTimeout bounds an entire operation.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// New creates a client for the Snow server at host:port.
func New(host string, port int, opts ...Option) *Client {
	c := &Client{
		host:           host,
		port:           port,
		connectTimeout: defaultConnectTimeout,
		requestTimeout: defaultRequestTimeout,
		log:            logging.Client(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tr = newTransport(fmt.Sprintf("http://%s:%d", host, port), c.connectTimeout)
	return c
}

// operation describes one command's interaction with the server.
type operation struct {
	payload       map[string]any
	sessionID     string
	terminalKinds []EventKind

	// ensureSession auto-creates a session bound to the connection when no
	// session id was supplied.
	ensureSession bool

	// waitForTerminal distinguishes commands that must observe a terminal
	// stream event from fire-and-continue acks that return once the POST
	// itself succeeds.
	waitForTerminal bool

	imageNames []string
}

// ChatOptions are the inputs for one chat turn.
type ChatOptions struct {
	Content   string
	SessionID string
	// Images are local file paths attached to the message.
	Images []string
	// YoloMode lets the server run non-sensitive tools without asking.
	YoloMode bool
}

// SendChat sends a chat message and waits for the turn to complete or for
// an interactive request.
func (c *Client) SendChat(ctx context.Context, opts ChatOptions) *Result {
	payload := map[string]any{
		"type":     "chat",
		"content":  opts.Content,
		"yoloMode": opts.YoloMode,
	}
	var imageNames []string
	if len(opts.Images) > 0 {
		attachments, names, err := buildImagePayload(opts.Images)
		if err != nil {
			return finalizeResult(&Result{
				Status:    StatusError,
				SessionID: opts.SessionID,
				ErrorCode: ErrCodeInvalidArgs,
				Message:   err.Error(),
			})
		}
		payload["images"] = attachments
		imageNames = names
	}
	return c.runOperation(ctx, operation{
		payload:         payload,
		sessionID:       opts.SessionID,
		terminalKinds:   chatTerminalKinds,
		ensureSession:   true,
		waitForTerminal: true,
		imageNames:      imageNames,
	})
}

// ConfirmTool approves or rejects a pending tool confirmation. The ack is
// fire-and-continue: the server resumes asynchronously, so the operation
// returns once the POST is accepted.
func (c *Client) ConfirmTool(ctx context.Context, sessionID, requestID string, approve bool) *Result {
	response := "approve"
	if !approve {
		response = "reject"
	}
	return c.runOperation(ctx, operation{
		payload: map[string]any{
			"type":      "tool_confirmation_response",
			"requestId": requestID,
			"response":  response,
		},
		sessionID:     sessionID,
		terminalKinds: chatTerminalKinds,
	})
}

// AnswerQuestion answers a pending user question. Fire-and-continue, like
// ConfirmTool.
func (c *Client) AnswerQuestion(ctx context.Context, sessionID, requestID, answer string) *Result {
	return c.runOperation(ctx, operation{
		payload: map[string]any{
			"type":      "user_question_response",
			"requestId": requestID,
			"response":  answer,
		},
		sessionID:     sessionID,
		terminalKinds: chatTerminalKinds,
	})
}

// Abort interrupts the session's running task. Synchronous only: the server
// acknowledges over HTTP and performs the interruption asynchronously, so
// no stream is opened.
func (c *Client) Abort(ctx context.Context, sessionID string) *Result {
	body, err := c.tr.postJSON(ctx, "/message", map[string]any{
		"type":      "abort",
		"sessionId": sessionID,
	}, c.requestTimeout)
	if err != nil {
		return finalizeResult(c.failureResult(sessionID, err))
	}
	if ok, _ := body["success"].(bool); !ok {
		return finalizeResult(c.failureResult(sessionID, &rejectedError{action: "abort request was not accepted", body: body}))
	}
	return finalizeResult(&Result{
		Status:    StatusSuccess,
		SessionID: sessionID,
		Message:   "task aborted",
	})
}

// SwitchAgent switches the session's primary agent.
func (c *Client) SwitchAgent(ctx context.Context, agentID, sessionID string) *Result {
	return c.runOperation(ctx, operation{
		payload: map[string]any{
			"type":    "switch_agent",
			"agentId": agentID,
		},
		sessionID:       sessionID,
		terminalKinds:   []EventKind{EventAgentSwitched, EventError},
		ensureSession:   true,
		waitForTerminal: true,
	})
}

// ListAgents returns the available primary agents. The protocol has no
// listing endpoint, so this probes with a deliberately unknown agent id and
// repackages the availableAgents side channel of the resulting error. If
// the server ever starts validating agent ids without emitting that side
// channel, the raw error result is returned as-is.
func (c *Client) ListAgents(ctx context.Context, sessionID string) *Result {
	probeID := "agent-probe-" + uuid.NewString()
	raw := c.runOperation(ctx, operation{
		payload: map[string]any{
			"type":    "switch_agent",
			"agentId": probeID,
		},
		sessionID:       sessionID,
		terminalKinds:   []EventKind{EventAgentList, EventError},
		ensureSession:   true,
		waitForTerminal: true,
	})

	if raw.Status == StatusSuccess && raw.Agents != nil {
		return raw
	}
	if raw.AvailableAgents != nil {
		return finalizeResult(&Result{
			Status:         StatusSuccess,
			SessionID:      raw.SessionID,
			Agents:         raw.AvailableAgents,
			CurrentAgentID: raw.CurrentAgentID,
		})
	}
	return raw
}

// RollbackOptions are the inputs for a session rollback.
type RollbackOptions struct {
	SessionID     string
	MessageIndex  int
	RollbackFiles bool
	SelectedFiles []string
}

// Rollback rolls the session back to a message index, optionally restoring
// files, and waits for the server's rollback_result verdict.
func (c *Client) Rollback(ctx context.Context, opts RollbackOptions) *Result {
	rollback := map[string]any{
		"messageIndex":  opts.MessageIndex,
		"rollbackFiles": opts.RollbackFiles,
	}
	if len(opts.SelectedFiles) > 0 {
		rollback["selectedFiles"] = opts.SelectedFiles
	}
	return c.runOperation(ctx, operation{
		payload: map[string]any{
			"type":     "rollback",
			"rollback": rollback,
		},
		sessionID:       opts.SessionID,
		terminalKinds:   []EventKind{EventRollbackResult, EventError},
		waitForTerminal: true,
	})
}

// HealthCheck fetches the server's health payload.
func (c *Client) HealthCheck(ctx context.Context) *Result {
	body, err := c.tr.getJSON(ctx, "/health", nil, c.connectTimeout)
	if err != nil {
		return finalizeResult(c.failureResult("", err))
	}
	return finalizeResult(&Result{
		Status: StatusSuccess,
		Health: body,
	})
}

// runOperation drives one stream-correlated operation end to end. The
// Result is built only after stream teardown has been attempted.
func (c *Client) runOperation(ctx context.Context, op operation) *Result {
	opID := uuid.NewString()[:8]
	command, _ := op.payload["type"].(string)
	log := c.log.With("operation_id", opID, "command", command)
	log.Debug("operation starting", "session_id", op.sessionID, "terminal_kinds", op.terminalKinds)

	state := newOperationState(op.sessionID, op.terminalKinds, op.imageNames, log)

	// Everything the operation spawns hangs off this context, so a POST
	// that lost the race to a terminal event is released immediately
	// instead of lingering until its own deadline.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := c.tr.openStream(ctx)
	if err != nil {
		return finalizeResult(c.failureResult(op.sessionID, err))
	}

	reader := newStreamReader(resp.Body, state, logging.Stream().With("operation_id", opID))
	reader.start()

	opErr := c.drive(ctx, op, state, log)

	// Terminal must be signalled before the cancel: the reader treats a
	// read failure after the signal as a normal teardown, not a stream
	// error.
	state.markTerminal()
	cancel()

	c.teardown(resp, reader, state, log)

	if opErr != nil {
		return finalizeResult(c.failureResult(state.sessionIDValue(), opErr))
	}
	log.Debug("operation finished")
	return finalizeResult(state.buildResult())
}

// postOutcome carries the result of the concurrent /message POST.
type postOutcome struct {
	body map[string]any
	err  error
}

// drive waits for the stream handshake, binds or creates the session,
// issues the POST concurrently, and arbitrates the race between the POST
// response and the stream's terminal signal. A nil return means the
// terminal state (whatever it is) should become the Result.
func (c *Client) drive(ctx context.Context, op operation, state *operationState, log *slog.Logger) error {
	connectTimer := time.NewTimer(c.connectTimeout)
	defer connectTimer.Stop()

	select {
	case <-state.connected:
	case <-state.terminal:
		// The stream failed before the handshake; the recorded state
		// already explains why. No command is sent.
		return nil
	case <-connectTimer.C:
		return &timeoutError{msg: "timed out waiting for the event stream handshake"}
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Debug("event stream connected", "connection_id", state.connectionIDValue())

	if op.sessionID != "" {
		op.payload["sessionId"] = op.sessionID
		c.bindSession(ctx, state, op.sessionID, log)
		if id := state.sessionIDValue(); id != "" {
			op.payload["sessionId"] = id
		}
	} else if op.ensureSession {
		if id := c.ensureSession(ctx, state, log); id != "" {
			op.payload["sessionId"] = id
		} else {
			log.Debug("automatic session creation failed; sending without a session id")
		}
	}

	log.Debug("posting command", "session_id", op.payload["sessionId"])
	postDone := make(chan postOutcome, 1)
	go func() {
		body, err := c.tr.postJSON(ctx, "/message", op.payload, c.requestTimeout)
		postDone <- postOutcome{body: body, err: err}
	}()

	deadline := time.NewTimer(c.requestTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-state.terminal:
			// Terminal event wins even if the POST is still in flight.
			return nil

		case out := <-postDone:
			// Disable this case; the channel delivers exactly once.
			postDone = nil
			if out.err != nil {
				// A terminal event that raced the failing POST still
				// wins; the recorded state explains the outcome.
				if state.terminalReached() {
					return nil
				}
				return out.err
			}
			log.Debug("command accepted", "response_success", out.body["success"])
			if ok, _ := out.body["success"].(bool); !ok {
				if state.terminalReached() {
					return nil
				}
				return &rejectedError{action: "sending the command failed", body: out.body}
			}
			if !op.waitForTerminal {
				return nil
			}

		case <-deadline.C:
			return &timeoutError{msg: "timed out waiting for the operation to complete"}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// teardown releases the stream in a fixed order: signal terminal to
// unblock any waiter, close the body to unblock the reader's blocking
// read, join the reader with a bound, then drop idle connections. The
// close itself is bounded too, since a server-side close may hang.
func (c *Client) teardown(resp *http.Response, reader *streamReader, state *operationState, log *slog.Logger) {
	state.markTerminal()

	closed := make(chan struct{})
	go func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug("closing event stream", "error", err)
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(streamCloseTimeout):
		log.Warn("event stream close did not finish in time; releasing asynchronously")
	}

	if !reader.join(readerJoinTimeout) {
		log.Warn("event stream reader did not exit within its grace period")
	}

	c.tr.closeIdle()
}
