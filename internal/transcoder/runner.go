package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// CommandRunner executes one external command to completion. It exists so
// tests can stand in for ffmpeg.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// execRunner runs commands through os/exec, keeping the tail of stderr for
// error reporting (ffmpeg writes its diagnostics there).
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(stderr.Bytes(), 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
