package tools

import (
	"context"
	"fmt"
	"os"
	"time"
)

// commandTool wraps a single binary as a Tool.
type commandTool struct {
	binary      string
	description string
	parameters  []Parameter
}

// NewCommandTool exposes an arbitrary binary under its own name.
func NewCommandTool(binary, description string) Tool {
	return &commandTool{
		binary:      binary,
		description: description,
		parameters: []Parameter{
			{Name: "args", Description: "Command arguments", Type: "array", Required: false},
			{Name: "stdin", Description: "Standard input", Type: "string", Required: false},
			{Name: "timeout", Description: "Execution timeout", Type: "duration", Required: false},
		},
	}
}

func (t *commandTool) Name() string        { return t.binary }
func (t *commandTool) Description() string { return t.description }

func (t *commandTool) Execute(ctx context.Context, input Input) (*Output, error) {
	return runCommand(ctx, t.binary, input)
}

func (t *commandTool) Schema() Schema {
	return Schema{Name: t.binary, Description: t.description, Parameters: t.parameters}
}

// NewGoTool exposes the Go toolchain (build, test, vet, ...).
func NewGoTool() Tool {
	return NewCommandTool("go", "Go toolchain")
}

// NewGitTool exposes git.
func NewGitTool() Tool {
	return NewCommandTool("git", "Version control")
}

// NewShellTool exposes sh -c for composed commands.
func NewShellTool() Tool {
	return &shellTool{}
}

type shellTool struct{}

func (t *shellTool) Name() string        { return "shell" }
func (t *shellTool) Description() string { return "POSIX shell command runner" }

func (t *shellTool) Execute(ctx context.Context, input Input) (*Output, error) {
	if len(input.Args) == 0 {
		return nil, fmt.Errorf("running shell: no command given")
	}
	shellInput := input
	shellInput.Args = append([]string{"-c"}, input.Args...)
	return runCommand(ctx, "sh", shellInput)
}

func (t *shellTool) Schema() Schema {
	return Schema{
		Name:        "shell",
		Description: "POSIX shell command runner",
		Parameters: []Parameter{
			{Name: "args", Description: "Shell command followed by positional arguments", Type: "array", Required: true},
		},
	}
}

// fsTool answers file-existence and read queries without spawning a
// process. Subcommand is args[0]: exists | read.
type fsTool struct{}

// NewFSTool exposes basic filesystem queries.
func NewFSTool() Tool {
	return &fsTool{}
}

func (t *fsTool) Name() string        { return "fs" }
func (t *fsTool) Description() string { return "Filesystem queries" }

func (t *fsTool) Execute(_ context.Context, input Input) (*Output, error) {
	start := time.Now()
	if len(input.Args) < 2 {
		return nil, fmt.Errorf("running fs: expected subcommand and path")
	}
	sub, path := input.Args[0], input.Args[1]

	out := &Output{}
	switch sub {
	case "exists":
		if _, err := os.Stat(path); err == nil {
			out.Stdout = "true"
		} else {
			out.Stdout = "false"
			out.ExitCode = 1
		}
	case "read":
		data, err := os.ReadFile(path)
		if err != nil {
			out.Stderr = err.Error()
			out.ExitCode = 1
		} else {
			out.Stdout = string(data)
		}
	default:
		return nil, fmt.Errorf("running fs: unknown subcommand %q", sub)
	}
	out.Duration = time.Since(start)
	return out, nil
}

func (t *fsTool) Schema() Schema {
	return Schema{
		Name:        "fs",
		Description: "Filesystem queries",
		Parameters: []Parameter{
			{Name: "subcommand", Description: "exists or read", Type: "string", Required: true},
			{Name: "path", Description: "Target path", Type: "string", Required: true},
		},
	}
}

// DefaultRegistry is the standard tool set.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewGoTool(),
		NewGitTool(),
		NewShellTool(),
		NewFSTool(),
	)
}
