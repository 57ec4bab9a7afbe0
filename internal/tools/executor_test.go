package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestShellTool_CapturesStreamsAndExitCode(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()

	out, err := reg.Execute(ctx, "shell", Input{Args: []string{"echo out; echo err >&2; exit 3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", out.ExitCode)
	}
	if strings.TrimSpace(out.Stdout) != "out" {
		t.Fatalf("expected stdout %q, got %q", "out", out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "err" {
		t.Fatalf("expected stderr %q, got %q", "err", out.Stderr)
	}
	if out.Duration <= 0 {
		t.Fatal("expected a positive duration")
	}
}

func TestShellTool_Stdin(t *testing.T) {
	reg := DefaultRegistry()
	out, err := reg.Execute(context.Background(), "shell", Input{
		Args:  []string{"cat"},
		Stdin: "piped input",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stdout != "piped input" {
		t.Fatalf("expected stdin to be echoed, got %q", out.Stdout)
	}
}

func TestShellTool_Env(t *testing.T) {
	reg := DefaultRegistry()
	out, err := reg.Execute(context.Background(), "shell", Input{
		Args: []string{"printf %s \"$DEVMAN_TEST_VAR\""},
		Env:  map[string]string{"DEVMAN_TEST_VAR": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stdout != "hello" {
		t.Fatalf("expected env var to pass through, got %q", out.Stdout)
	}
}

func TestShellTool_Timeout(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Execute(context.Background(), "shell", Input{
		Args:    []string{"sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Execute(context.Background(), "nope", Input{})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestFSTool(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "present.txt")
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := reg.Execute(ctx, "fs", Input{Args: []string{"exists", path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stdout != "true" || out.ExitCode != 0 {
		t.Fatalf("expected existing file, got %q exit %d", out.Stdout, out.ExitCode)
	}

	out, err = reg.Execute(ctx, "fs", Input{Args: []string{"exists", path + ".missing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stdout != "false" || out.ExitCode != 1 {
		t.Fatalf("expected missing file, got %q exit %d", out.Stdout, out.ExitCode)
	}

	out, err = reg.Execute(ctx, "fs", Input{Args: []string{"read", path}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stdout != "content" {
		t.Fatalf("expected file content, got %q", out.Stdout)
	}
}

func TestSchemas(t *testing.T) {
	reg := DefaultRegistry()
	schemas := reg.Schemas()
	if len(schemas) != 4 {
		t.Fatalf("expected 4 schemas, got %d", len(schemas))
	}
	if schemas[0].Name != "go" {
		t.Fatalf("expected go first, got %s", schemas[0].Name)
	}
}
