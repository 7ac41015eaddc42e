package client

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"
)

// maxEventBytes bounds one framed event block. Chat payloads can carry
// base64 images, so this is generous.
const maxEventBytes = 8 << 20

// streamReader consumes one /events connection and feeds each framed event
// to the operation state. It runs as a single goroutine for the lifetime
// of one operation and is unblocked during teardown by closing the body.
type streamReader struct {
	body  io.ReadCloser
	state *operationState
	log   *slog.Logger
	done  chan struct{}
}

func newStreamReader(body io.ReadCloser, state *operationState, log *slog.Logger) *streamReader {
	return &streamReader{
		body:  body,
		state: state,
		log:   log,
		done:  make(chan struct{}),
	}
}

func (r *streamReader) start() {
	go r.loop()
}

// loop reads the stream line by line, accumulating consecutive "data"
// lines and dispatching the joined block on each blank line. It exits when
// the stream ends, a read fails, or the operation has completed.
func (r *streamReader) loop() {
	defer close(r.done)

	scanner := bufio.NewScanner(r.body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	var dataLines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimLeft(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
		if line == "" {
			if len(dataLines) > 0 {
				r.dispatch(strings.Join(dataLines, "\n"))
				dataLines = dataLines[:0]
			}
			if r.state.terminalReached() {
				return
			}
		}
	}

	if r.state.terminalReached() {
		return
	}
	err := scanner.Err()
	if err == nil {
		// The server closed the stream before the operation completed.
		err = io.ErrUnexpectedEOF
	}
	r.log.Debug("event stream ended early", "error", err)
	r.state.failStream(err)
}

// dispatch parses one data block as a JSON event. Malformed blocks are
// logged and discarded, never fatal.
func (r *streamReader) dispatch(block string) {
	var ev Event
	if err := json.Unmarshal([]byte(block), &ev); err != nil {
		r.log.Debug("discarding malformed event block", "error", err)
		return
	}
	r.state.handleEvent(ev)
}

// join waits for the reader goroutine to exit, bounded by d.
func (r *streamReader) join(d time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(d):
		return false
	}
}
