// Package subshell provides a simplified interface for running shell
// commands, modeled after an interactive subshell: commands are strings
// interpreted by `sh -c`, and chains treat `cd` as a working-directory
// change rather than a child process.
package subshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Result holds the outcome of one executed command.
type Result struct {
	Cmd      string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Options control command execution.
type Options struct {
	// Dir sets the working directory, as if `cd` ran before the command.
	Dir string
	// Passthrough wires the child directly to this process's stdout and
	// stderr instead of capturing. Use when the command prompts for
	// input that cannot be suppressed (like a password).
	Passthrough bool
}

// Run executes cmd through `sh -c` and returns its captured output and
// exit code. A non-zero exit is reported in the Result, not as an
// error; the error return covers failures to start the process at all.
func Run(ctx context.Context, cmd string, opts Options) (Result, error) {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = opts.Dir

	var stdout, stderr bytes.Buffer
	if opts.Passthrough {
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	res := Result{
		Cmd:    cmd,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("run %q: %w", cmd, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	slog.Debug("subshell executed", "cmd", cmd, "dir", opts.Dir, "exit", res.ExitCode)
	if res.Stdout != "" {
		slog.Debug("subshell stdout", "cmd", cmd, "stdout", res.Stdout)
	}
	if res.Stderr != "" {
		slog.Debug("subshell stderr", "cmd", cmd, "stderr", res.Stderr)
	}
	return res, nil
}

// ChainOptions control chain execution.
type ChainOptions struct {
	Options
	// FailFast stops the chain on the first command that exits non-zero.
	// The caller can tell which command failed from the length of the
	// returned slice and the Cmd of its last element.
	FailFast bool
}

// RunChain executes cmds in sequence. A command of the form `cd <dir>`
// is handled specially: it only updates the working directory for the
// rest of the chain and contributes a synthetic zero-exit Result so
// callers do not have to count `cd`s separately.
func RunChain(ctx context.Context, cmds []string, opts ChainOptions) ([]Result, error) {
	results := make([]Result, 0, len(cmds))
	dir := opts.Dir

	for _, cmd := range cmds {
		if rest, ok := strings.CutPrefix(cmd, "cd "); ok {
			dir = strings.TrimSpace(rest)
			slog.Debug("subshell chain changed directory", "dir", dir)
			results = append(results, Result{Cmd: cmd})
			continue
		}

		runOpts := opts.Options
		runOpts.Dir = dir
		res, err := Run(ctx, cmd, runOpts)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if opts.FailFast && !res.Ok() {
			slog.Error("command in fail-fast chain returned an error", "cmd", cmd, "exit", res.ExitCode)
			break
		}
	}
	return results, nil
}
