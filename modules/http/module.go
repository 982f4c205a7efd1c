// Package http sends an HTTP request as a task action and fails on a
// non-2xx response.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared by all executions to reuse TCP connections.
var httpClient = &http.Client{}

// Input defines the arguments of an `http` action block.
type Input struct {
	URL     string            `hcl:"url"`
	Method  string            `hcl:"method,optional"`
	Body    string            `hcl:"body,optional"`
	Headers map[string]string `hcl:"headers,optional"`
	Timeout string            `hcl:"timeout,optional"`
}

// Request sends the request and copies the response body to the task's
// stdout.
func Request(ctx context.Context, ec *task.ExecContext, input *Input) error {
	method := input.Method
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx).With("method", method, "url", input.URL)

	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("failed to parse timeout: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if input.Body != "" {
		body = strings.NewReader(input.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, input.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	logger.Debug("Making HTTP request")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("Received HTTP response", "status", resp.Status)

	if ec.Stdout != nil {
		if _, err := io.Copy(ec.Stdout, resp.Body); err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request to %s returned %s", input.URL, resp.Status)
	}
	return nil
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("http", registry.Decoded(Request))
}
