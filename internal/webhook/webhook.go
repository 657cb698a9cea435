// Package webhook posts capture announcements to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client is shared by every Send; its timeout keeps an unresponsive
// endpoint from stalling a capture loop.
var Client = &http.Client{Timeout: 30 * time.Second}

// snippetLen caps how much of an error body ends up in the error message.
const snippetLen = 200

// Send posts body to url as application/json. Custom headers are applied
// after the default Content-Type, so callers can override it. Header
// values are expanded with os.ExpandEnv to support $VAR secrets.
func Send(ctx context.Context, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "acoustic")
	for k, v := range headers {
		req.Header.Set(k, os.ExpandEnv(v))
	}

	resp, err := Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s returned %d: %s", url, resp.StatusCode, snippet(resp.Body))
	}
	return nil
}

// snippet reads the start of r for an error message.
func snippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, snippetLen+1))
	s := strings.TrimSpace(string(data))
	switch {
	case s == "":
		return "(empty body)"
	case len(data) > snippetLen:
		return strings.TrimSpace(string(data[:snippetLen])) + "..."
	}
	return s
}
