// Package client implements the protocol adapter for the Snow
// chat-orchestration server.
//
// Each public method performs one operation: it opens an SSE connection to
// /events, posts a command to /message (or calls a session endpoint), and
// reconciles the HTTP response with the events arriving on the stream into
// a single Result. The correlation engine has three pieces:
//
//   - streamReader consumes the /events connection and frames it into
//     discrete events (stream.go)
//   - operationState owns the mutable per-operation state and decides when
//     the operation is done (correlator.go)
//   - Client.runOperation arbitrates the race between the HTTP response
//     and the stream's terminal event (client.go)
//
// No failure escapes an operation as an error: every outcome, including
// timeouts and unreachable servers, is converted into a Result.
package client
