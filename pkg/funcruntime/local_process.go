package funcruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/ruleforge/engine/pkg/variable"
)

// LocalProcess runs a Function node's code as a shell script on the local
// machine: the input Variable is JSON-encoded onto stdin, stdout is decoded
// back into a Variable, and the deadline is enforced via
// context.WithDeadline — the same run/capture/cancel shape as the
// teacher's LocalSession.Run, specialized to a JSON-in/JSON-out contract
// instead of argv/Result.
type LocalProcess struct {
	// Shell overrides the interpreter used to run code. Empty means the
	// platform default ("/bin/sh -c" on Unix, "cmd /C" on Windows).
	Shell []string
}

// NewLocalProcess constructs a LocalProcess using the platform default
// shell.
func NewLocalProcess() *LocalProcess { return &LocalProcess{} }

func (p *LocalProcess) shellCommand(code string) (string, []string) {
	if len(p.Shell) > 0 {
		return p.Shell[0], append(append([]string{}, p.Shell[1:]...), code)
	}
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", code}
	}
	return "/bin/sh", []string{"-c", code}
}

// Invoke implements Runtime.
func (p *LocalProcess) Invoke(ctx context.Context, code string, input variable.Variable, deadline time.Time) (variable.Variable, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	payload, err := json.Marshal(input)
	if err != nil {
		return variable.Null, fmt.Errorf("funcruntime: encode input: %w", err)
	}

	name, args := p.shellCommand(code)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return variable.Null, fmt.Errorf("funcruntime: function call exceeded its deadline")
	}
	if runErr != nil {
		return variable.Null, fmt.Errorf("funcruntime: function call failed: %w (stderr: %s)", runErr, stderr.String())
	}

	if stdout.Len() == 0 {
		return variable.Null, nil
	}
	out, err := variable.ParseJSON(stdout.Bytes())
	if err != nil {
		return variable.Null, fmt.Errorf("funcruntime: decode output: %w", err)
	}
	return out, nil
}
