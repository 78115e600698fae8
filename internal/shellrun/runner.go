// Package shellrun replays a shell command and forwards its merged
// stdout/stderr incrementally over a one-way event channel. The consumer owns
// all state; the runner only produces.
package shellrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const (
	defaultShell     = "/bin/sh"
	readChunkBytes   = 4096
	defaultMaxOutput = 256 * 1024
)

// SpawnFailure means the command could not start at all. Output produced
// before the failure (normally none) is still delivered.
type SpawnFailure struct {
	Command string
	Err     error
}

func (e *SpawnFailure) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Err)
}

func (e *SpawnFailure) Unwrap() error { return e.Err }

// OutputEvent is an ordered fragment of merged stdout/stderr.
type OutputEvent struct {
	Seq  int
	Data []byte
}

// ExitEvent is the final event on the channel. Err is nil for a normal exit
// (including non-zero exit codes), a *SpawnFailure if the command never
// started, or the context error when cancelled.
type ExitEvent struct {
	ExitCode int
	Duration time.Duration
	Err      error
}

// Event is either an OutputEvent or an ExitEvent.
type Event any

// Runner executes one command through the user's shell.
type Runner struct {
	// Shell is the interpreter path; empty falls back to $SHELL, then /bin/sh.
	Shell string
	// MaxOutputBytes caps captured output per run; excess is dropped with a
	// marker fragment. <= 0 uses the default.
	MaxOutputBytes int
}

// ResolveShell returns the interpreter the runner will use.
func (r *Runner) ResolveShell() string {
	if r != nil && strings.TrimSpace(r.Shell) != "" {
		return strings.TrimSpace(r.Shell)
	}
	if env := strings.TrimSpace(os.Getenv("SHELL")); env != "" {
		return env
	}
	return defaultShell
}

func buildCommand(ctx context.Context, shell string, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, shell, "-c", command)
}

// Start launches the command and returns the event channel. Output events
// arrive in production order, followed by exactly one ExitEvent, after which
// the channel is closed. Cancelling ctx kills the child's whole process group;
// no events are produced after the ExitEvent.
func (r *Runner) Start(ctx context.Context, command string) (<-chan Event, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("command is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	maxBytes := defaultMaxOutput
	if r != nil && r.MaxOutputBytes > 0 {
		maxBytes = r.MaxOutputBytes
	}

	cmd := buildCommand(ctx, r.ResolveShell(), command)
	cmd.Env = os.Environ()
	// Bound how long Wait can hang after cancellation if orphaned subprocesses
	// keep the output pipe open.
	cmd.WaitDelay = 500 * time.Millisecond
	configureCancellation(cmd)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	events := make(chan Event, 64)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &SpawnFailure{Command: command, Err: err}
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		seq := 0
		written := 0
		truncated := false
		buf := make([]byte, readChunkBytes)
		for {
			n, err := pr.Read(buf)
			if n > 0 && !truncated {
				data := buf[:n]
				if written+len(data) > maxBytes {
					data = data[:maxBytes-written]
					truncated = true
				}
				if len(data) > 0 {
					written += len(data)
					events <- OutputEvent{Seq: seq, Data: append([]byte(nil), data...)}
					seq++
				}
				if truncated {
					events <- OutputEvent{Seq: seq, Data: []byte("\n… (output truncated)\n")}
					seq++
				}
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		waitErr := cmd.Wait()
		pw.Close()
		<-readDone
		pr.Close()

		exit := ExitEvent{Duration: time.Since(start)}
		switch {
		case ctx.Err() != nil:
			exit.ExitCode = -1
			exit.Err = ctx.Err()
		case waitErr == nil:
			exit.ExitCode = 0
		default:
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				exit.ExitCode = exitErr.ExitCode()
			} else {
				exit.ExitCode = -1
				exit.Err = waitErr
			}
		}
		events <- exit
		close(events)
	}()

	return events, nil
}
