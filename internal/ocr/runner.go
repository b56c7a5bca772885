package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external command and returns its stdout. Tests
// substitute a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the tail of stderr from a failed recognizer or
// converter invocation.
type CommandError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

const stderrTail = 2 << 10

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		cerr := &CommandError{Cmd: name, Stderr: tail(errb.String(), stderrTail), Err: err}
		r.logger.Debug("ocr.exec.failed", "cmd", name, "elapsed_ms", time.Since(start).Milliseconds(), "error", cerr)
		return nil, cerr
	}
	r.logger.Debug("ocr.exec.ok", "cmd", name, "args", len(args), "elapsed_ms", time.Since(start).Milliseconds(), "stdout_bytes", out.Len())
	return out.Bytes(), nil
}

// tail keeps the last n bytes, where tesseract and magick put the useful part.
func tail(s string, n int) string {
	s = string(bytes.TrimSpace([]byte(s)))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
