package duck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rubberduck/internal/llm"
	"rubberduck/internal/shellrun"
)

// RunPlain drives the same session without the TUI: output and response are
// written to out as they arrive. Used for non-TTY stdout and -plain.
func RunPlain(ctx context.Context, opts Options, out io.Writer) (Result, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return Result{}, errors.New("command is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Runner == nil {
		opts.Runner = &shellrun.Runner{}
	}

	session := NewSession(opts.Command).SetPhase(PhaseRunning)
	spawnFailed := false
	authFailed := false

	fmt.Fprintf(out, "$ %s\n", opts.Command)
	runnerEvents, err := opts.Runner.Start(ctx, opts.Command)
	if err != nil {
		var spawn *shellrun.SpawnFailure
		if !errors.As(err, &spawn) {
			return Result{}, err
		}
		spawnFailed = true
		session = session.SetExit(-1).WithOutputStatus(spawn.Error()).SetPhase(PhaseDone)
		fmt.Fprintln(out, "error:", spawn.Error())
	} else {
		for ev := range runnerEvents {
			switch ev := ev.(type) {
			case shellrun.OutputEvent:
				session = session.AppendOutput(ev.Data)
				out.Write(ev.Data)
			case shellrun.ExitEvent:
				if ev.Err != nil && errors.Is(ev.Err, context.Canceled) {
					session = session.SetPhase(PhaseCancelling).SetPhase(PhaseTerminated)
					continue
				}
				session = session.SetExit(ev.ExitCode).SetPhase(PhaseAwaitingModel)
			}
		}
	}

	if session.Phase == PhaseAwaitingModel {
		if opts.Client == nil {
			session = session.WithResponseStatus("no model configured").SetPhase(PhaseDone)
			fmt.Fprintf(out, "\n[exit %d] no model configured — set an API key to get a diagnosis\n", session.ExitCode)
		} else {
			fmt.Fprintf(out, "\n[exit %d] asking the duck…\n\n", session.ExitCode)
			prompt := llm.BuildPrompt(llm.PromptInput{
				Command:        session.Command,
				CapturedOutput: session.Output,
				ExitCode:       session.ExitCode,
				GitDiff:        opts.GitDiff,
				Platform:       opts.Platform,
			})
			session = session.SetPhase(PhaseStreaming)
			for ev := range opts.Client.Stream(ctx, prompt) {
				switch ev := ev.(type) {
				case llm.ChunkEvent:
					session = session.AppendResponse(ev.Text)
					io.WriteString(out, ev.Text)
				case llm.DoneEvent:
					switch {
					case ev.Err == nil:
						session = session.SetPhase(PhaseDone)
					case errors.Is(ev.Err, context.Canceled):
						session = session.SetPhase(PhaseCancelling).SetPhase(PhaseTerminated)
					case llm.IsAuthError(ev.Err):
						authFailed = true
						session = session.WithResponseStatus(ev.Err.Error()).SetPhase(PhaseDone)
						fmt.Fprintln(out, "\nerror:", ev.Err)
					default:
						session = session.WithResponseStatus(ev.Err.Error()).SetPhase(PhaseDone)
						fmt.Fprintln(out, "\nerror:", ev.Err, "(partial response kept)")
					}
				}
			}
			fmt.Fprintln(out)
		}
	}

	fix := ""
	if session.Response != "" {
		fix = ExtractFixCommand(session.Response)
	}
	return Result{
		Output:      session.Output,
		Response:    session.Response,
		FixCommand:  fix,
		Phase:       session.Phase,
		CommandExit: session.ExitCode,
		SpawnFailed: spawnFailed,
		AuthFailed:  authFailed,
	}, nil
}
