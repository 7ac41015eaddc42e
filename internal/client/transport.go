package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/snowcli/snowctl/internal/logging"
)

// transport issues JSON requests against the Snow server and opens the
// long-lived event stream. JSON calls are bounded per request; the stream
// client bounds only the dial and response-header phases so an idle but
// alive stream is never mistaken for a stall.
type transport struct {
	baseURL        string
	connectTimeout time.Duration
	httpClient     *http.Client
	streamClient   *http.Client
	log            *slog.Logger
}

func newTransport(baseURL string, connectTimeout time.Duration) *transport {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &transport{
		baseURL:        baseURL,
		connectTimeout: connectTimeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: connectTimeout,
			},
		},
		log: logging.Transport(),
	}
}

func (t *transport) getJSON(ctx context.Context, path string, query url.Values, timeout time.Duration) (map[string]any, error) {
	target := t.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return t.do(ctx, http.MethodGet, target, nil, timeout)
}

func (t *transport) postJSON(ctx context.Context, path string, payload any, timeout time.Duration) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return t.do(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body), timeout)
}

func (t *transport) deleteJSON(ctx context.Context, path string, timeout time.Duration) (map[string]any, error) {
	return t.do(ctx, http.MethodDelete, t.baseURL+path, nil, timeout)
}

func (t *transport) do(ctx context.Context, method, target string, body io.Reader, timeout time.Duration) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	t.log.Debug("http request", "method", method, "url", target)
	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &timeoutError{msg: fmt.Sprintf("%s %s did not complete in %v", method, target, timeout)}
		}
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s %s: %w", method, target, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{Status: resp.StatusCode, Body: raw}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("server response is not valid JSON (status %d): %.200s", resp.StatusCode, raw)
	}
	return out, nil
}

// openStream opens the long-lived GET /events connection. The returned
// response body blocks on read with no deadline; closing it from another
// goroutine is the supported way to unblock a reader.
func (t *transport) openStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &statusError{Status: resp.StatusCode, Body: raw}
	}
	t.log.Debug("event stream open", "url", t.baseURL+"/events")
	return resp, nil
}

// closeIdle drops any kept-alive connections, including the stream's.
func (t *transport) closeIdle() {
	t.httpClient.CloseIdleConnections()
	t.streamClient.CloseIdleConnections()
}
