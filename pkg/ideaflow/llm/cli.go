package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIClient implements Client by shelling out to a chat CLI binary
// (e.g. claude). Every call is bounded by the configured timeout.
type CLIClient struct {
	path    string
	model   string
	workdir string
	timeout time.Duration
}

// CLIOption configures a CLIClient.
type CLIOption func(*CLIClient)

// NewCLIClient creates a client for the given binary. Assumes the
// binary is in PATH unless overridden with WithPath.
func NewCLIClient(opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		path:    "claude",
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPath sets the path to the CLI binary.
func WithPath(path string) CLIOption {
	return func(c *CLIClient) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) CLIOption {
	return func(c *CLIClient) { c.model = model }
}

// WithWorkdir sets the working directory for CLI invocations.
func WithWorkdir(dir string) CLIOption {
	return func(c *CLIClient) { c.workdir = dir }
}

// WithCallTimeout bounds each completion call.
func WithCallTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) { c.timeout = d }
}

// Complete implements Client.
func (c *CLIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			// Timeouts are ordinary transient failures.
			return nil, NewError("complete", fmt.Errorf("timeout after %s", c.timeout), true)
		}
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		errMsg := stderr.String()
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, errMsg), IsRetryable(errMsg))
	}

	return &CompletionResponse{
		Content:  strings.TrimSpace(stdout.String()),
		Model:    c.model,
		Duration: time.Since(start),
	}, nil
}

// buildArgs constructs the CLI arguments for a completion request.
func (c *CLIClient) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}

	model := req.Model
	if model == "" {
		model = c.model
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", req.SystemPrompt)
	}

	// Flatten the conversation into a single prompt; the CLI carries
	// no session state between calls.
	var b strings.Builder
	for _, m := range req.Messages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	args = append(args, b.String())

	return args
}
