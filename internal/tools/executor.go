// Package tools runs external commands on behalf of the quality engine
// and the work orchestrator. Tools are registered by name; execution
// captures exit code and both streams and never treats a non-zero exit
// as an error.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Input carries the invocation parameters for one tool run.
type Input struct {
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
	Stdin   string            `json:"stdin,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
	WorkDir string            `json:"work_dir,omitempty"`
}

// Output is what a tool run produced.
type Output struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Parameter describes one schema parameter for discovery.
type Parameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

// Schema is the discovery document for one tool.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Tool is one named external capability.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input Input) (*Output, error)
	Schema() Schema
}

// Executor runs tools by name.
type Executor interface {
	Execute(ctx context.Context, tool string, input Input) (*Output, error)
	Schemas() []Schema
}

// ErrUnknownTool is returned when no tool is registered under the name.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is a name-keyed Executor.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry preloaded with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Execute(ctx context.Context, tool string, input Input) (*Output, error) {
	t, ok := r.tools[tool]
	if !ok {
		return nil, fmt.Errorf("executing %q: %w", tool, ErrUnknownTool)
	}
	return t.Execute(ctx, input)
}

// Schemas returns the discovery documents in registration order.
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}

// runCommand launches the binary with the input and captures both
// streams. A non-zero exit code is reported in Output, not as an error;
// only launch failures and timeouts error.
func runCommand(ctx context.Context, binary string, input Input) (*Output, error) {
	if input.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, input.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, input.Args...)
	if input.WorkDir != "" {
		cmd.Dir = input.WorkDir
	}
	if len(input.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range input.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if input.Stdin != "" {
		cmd.Stdin = strings.NewReader(input.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("running %s: %w", binary, ctx.Err())
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("running %s: %w", binary, err)
		}
	}

	return &Output{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}, nil
}
