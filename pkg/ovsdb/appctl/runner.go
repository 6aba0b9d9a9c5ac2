package appctl

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "os/exec"
    "strings"
)

// Runner executes an external command and returns its combined stdout and
// stderr. A non-zero exit must be reported as *CommandError.
type Runner interface {
    Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError is a failed control command. Output is the combined
// stdout/stderr surfaced to operators.
type CommandError struct {
    Args     []string
    Output   string
    ExitCode int
    Err      error
}

func (e *CommandError) Error() string {
    out := strings.TrimSpace(e.Output)
    if out == "" {
        return fmt.Sprintf("appctl: %q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
    }
    return fmt.Sprintf("appctl: %q exited with status %d: %s", strings.Join(e.Args, " "), e.ExitCode, out)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
    cmd := exec.CommandContext(ctx, name, args...)
    var b bytes.Buffer
    cmd.Stdout = &b
    cmd.Stderr = &b
    err := cmd.Run()
    if err == nil { return b.Bytes(), nil }
    code := -1
    var ee *exec.ExitError
    if errors.As(err, &ee) { code = ee.ExitCode() }
    return b.Bytes(), &CommandError{Args: cmd.Args, Output: b.String(), ExitCode: code, Err: err}
}
