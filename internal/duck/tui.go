package duck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"rubberduck/internal/appinfo"
	"rubberduck/internal/llm"
	"rubberduck/internal/shellrun"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Ingestor produces the ordered response chunk stream; satisfied by
// *llm.Client. The loop is its only consumer.
type Ingestor interface {
	Stream(ctx context.Context, p llm.Prompt) <-chan llm.Event
}

// Options wires the session's external collaborators into the event loop.
type Options struct {
	// Command is the resolved command string to replay. Required.
	Command string
	// Runner executes the command; a zero Runner resolves the shell from env.
	Runner *shellrun.Runner
	// Client streams the explanation. Nil means no credentials are
	// configured: the streaming phase is skipped entirely.
	Client Ingestor
	// GitDiff is prompt context gathered before the session starts.
	GitDiff string
	// Platform is the OS description used in the system prompt.
	Platform string
}

// Result is the final session state, available after the loop exits for
// logging and for the process exit code.
type Result struct {
	Output      string
	Response    string
	FixCommand  string
	Phase       Phase
	CommandExit int
	SpawnFailed bool
	AuthFailed  bool
}

// ExitCode is 0 for normal completion and user quit; non-zero only when the
// session failed before producing anything useful.
func (r Result) ExitCode() int {
	if r.SpawnFailed || r.AuthFailed {
		return 1
	}
	return 0
}

// Run drives a full session in the terminal. The terminal device is owned by
// the returned program for the whole session; bubbletea restores it on every
// exit path, including errors.
func Run(ctx context.Context, opts Options, in io.Reader, out io.Writer) (Result, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return Result{}, errors.New("command is required")
	}
	if f, ok := out.(*os.File); ok {
		if !term.IsTerminal(int(f.Fd())) {
			return Result{}, fmt.Errorf("stdout is not a TTY; use -plain")
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(ctx, cancel, opts)
	prog := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := prog.Run()
	if err != nil {
		return Result{}, err
	}
	fm, ok := final.(model)
	if !ok {
		return Result{}, errors.New("unexpected final model type")
	}
	return fm.result(), nil
}

type model struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	session Session
	events  chan asyncMsg

	width  int
	height int
	ready  bool

	topVP    viewport.Model
	bottomVP viewport.Model

	spinnerFrame int
	spawnFailed  bool
	authFailed   bool

	// lastRendered tracks the session the viewports were last built from so
	// unchanged ticks skip the rebuild.
	lastRendered Session
	lastWidth    int
	lastHeight   int
}

type asyncMsg struct {
	Event tea.Msg
}

type initMsg struct{}

type spawnFailedMsg struct {
	Err *shellrun.SpawnFailure
}

type runnerOutputMsg shellrun.OutputEvent

type runnerExitMsg shellrun.ExitEvent

type streamChunkMsg llm.ChunkEvent

type streamDoneMsg struct {
	Err error
}

type tickMsg struct{}

func newModel(ctx context.Context, cancel context.CancelFunc, opts Options) model {
	if opts.Runner == nil {
		opts.Runner = &shellrun.Runner{}
	}
	return model{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		session:  NewSession(opts.Command),
		events:   make(chan asyncMsg, 512),
		topVP:    viewport.New(0, 0),
		bottomVP: viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return initMsg{} },
		tickCmd(),
		waitAsyncCmd(m.events),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func waitAsyncCmd(ch <-chan asyncMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// forwardRunner bridges the runner's event channel into the loop's single
// async channel. It stops on its own when the runner closes the channel.
func forwardRunner(ctx context.Context, opts Options, events chan<- asyncMsg) {
	runnerEvents, err := opts.Runner.Start(ctx, opts.Command)
	if err != nil {
		var spawn *shellrun.SpawnFailure
		if !errors.As(err, &spawn) {
			spawn = &shellrun.SpawnFailure{Command: opts.Command, Err: err}
		}
		events <- asyncMsg{Event: spawnFailedMsg{Err: spawn}}
		return
	}
	for ev := range runnerEvents {
		switch ev := ev.(type) {
		case shellrun.OutputEvent:
			events <- asyncMsg{Event: runnerOutputMsg(ev)}
		case shellrun.ExitEvent:
			events <- asyncMsg{Event: runnerExitMsg(ev)}
		}
	}
}

// forwardStream bridges the ingestor's chunk channel into the loop.
func forwardStream(ctx context.Context, client Ingestor, prompt llm.Prompt, events chan<- asyncMsg) {
	for ev := range client.Stream(ctx, prompt) {
		switch ev := ev.(type) {
		case llm.ChunkEvent:
			events <- asyncMsg{Event: streamChunkMsg(ev)}
		case llm.DoneEvent:
			events <- asyncMsg{Event: streamDoneMsg{Err: ev.Err}}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		m.rerender(true)
		return m, nil
	case asyncMsg:
		cmd := m.handleAsync(msg.Event)
		m.rerender(false)
		if cmd != nil {
			return m, cmd
		}
		return m, waitAsyncCmd(m.events)
	case initMsg:
		m.session = m.session.SetPhase(PhaseRunning)
		go forwardRunner(m.ctx, m.opts, m.events)
		return m, nil
	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		m.rerender(false)
		return m, tickCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

// handleAsync applies exactly one source event and returns a follow-up
// command (only ever tea.Quit). Events from sources that are no longer active
// for the current phase are discarded, which is what makes cancellation
// clean: nothing is appended after the quit keypress's tick.
func (m *model) handleAsync(evt tea.Msg) tea.Cmd {
	switch evt := evt.(type) {
	case spawnFailedMsg:
		if m.session.Phase != PhaseRunning {
			return nil
		}
		if isCancellation(evt.Err) {
			// The context died under us (SIGTERM), not a bad command.
			return m.terminate()
		}
		m.spawnFailed = true
		m.session = m.session.SetExit(-1).
			WithOutputStatus(evt.Err.Error()).
			WithResponseStatus("diagnosis skipped: command never started").
			SetPhase(PhaseDone)
	case runnerOutputMsg:
		if m.session.Phase != PhaseRunning {
			return nil
		}
		m.session = m.session.AppendOutput(evt.Data)
	case runnerExitMsg:
		if m.session.Phase != PhaseRunning {
			return nil
		}
		if isCancellation(evt.Err) {
			return m.terminate()
		}
		m.session = m.session.SetExit(evt.ExitCode).SetPhase(PhaseAwaitingModel)
		m.startStreaming()
	case streamChunkMsg:
		if m.session.Phase != PhaseStreaming {
			return nil
		}
		m.session = m.session.AppendResponse(evt.Text)
	case streamDoneMsg:
		if m.session.Phase != PhaseStreaming {
			return nil
		}
		return m.finishStream(evt.Err)
	}
	return nil
}

func isCancellation(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// terminate moves the session onto the cancellation track and quits the
// program. Safe to reach twice; the phase machine freezes at Terminated.
func (m *model) terminate() tea.Cmd {
	m.cancel()
	m.session = m.session.SetPhase(PhaseCancelling).SetPhase(PhaseTerminated)
	return tea.Quit
}

// startStreaming decides, once, whether the streaming phase runs at all.
func (m *model) startStreaming() {
	if m.opts.Client == nil {
		m.session = m.session.
			WithResponseStatus("no model configured — set an API key to get a diagnosis").
			SetPhase(PhaseDone)
		return
	}
	prompt := llm.BuildPrompt(llm.PromptInput{
		Command:        m.session.Command,
		CapturedOutput: m.session.Output,
		ExitCode:       m.session.ExitCode,
		GitDiff:        m.opts.GitDiff,
		Platform:       m.opts.Platform,
	})
	m.session = m.session.SetPhase(PhaseStreaming)
	go forwardStream(m.ctx, m.opts.Client, prompt, m.events)
}

func (m *model) finishStream(err error) tea.Cmd {
	switch {
	case err == nil:
		status := "done — q to quit"
		if ExtractFixCommand(m.session.Response) != "" {
			status = "fix ready, printed on exit — q to quit"
		}
		m.session = m.session.WithResponseStatus(status).SetPhase(PhaseDone)
	case isCancellation(err):
		// External cancellation (SIGTERM on the parent context). A quit
		// keypress never reaches here: it moves the phase first and the
		// Streaming gate drops this event.
		return m.terminate()
	case llm.IsAuthError(err):
		m.authFailed = true
		m.session = m.session.WithResponseStatus(err.Error()).SetPhase(PhaseDone)
	default:
		// StreamError / ProtocolError: keep whatever arrived.
		m.session = m.session.WithResponseStatus(err.Error() + " (partial response kept)").SetPhase(PhaseDone)
	}
	return nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		// Broadcast cancellation to every active source, then terminate.
		// Later events from those sources are discarded by phase checks.
		return m, m.terminate()
	case "up", "k":
		m.scrollOutput(-1)
		return m, nil
	case "down", "j":
		m.scrollOutput(1)
		return m, nil
	case "pgup":
		m.scrollOutput(-m.topVP.Height)
		return m, nil
	case "pgdown":
		m.scrollOutput(m.topVP.Height)
		return m, nil
	default:
		return m, nil
	}
}

func (m *model) scrollOutput(delta int) {
	total := len(wrapLines(m.session.Output, max(1, m.topVP.Width)))
	m.session = m.session.Scroll(delta, max(1, m.topVP.Height), total)
	m.rerender(true)
}

func (m *model) resize() {
	contentW := max(10, m.width-2)
	// header + two pane titles + divider + status lines
	chromeH := 6
	paneH := max(1, (m.height-chromeH)/2)
	m.topVP.Width = contentW
	m.topVP.Height = paneH
	m.bottomVP.Width = contentW
	m.bottomVP.Height = max(1, m.height-chromeH-paneH)
}

// rerender rebuilds viewport content only when the session actually changed;
// redundant terminal writes on idle ticks are skipped.
func (m *model) rerender(force bool) {
	if !m.ready {
		return
	}
	if !force && m.session == m.lastRendered && m.width == m.lastWidth && m.height == m.lastHeight {
		return
	}
	m.lastRendered = m.session
	m.lastWidth = m.width
	m.lastHeight = m.height

	frame := m.session.RenderFrame(max(1, m.topVP.Width), max(1, m.topVP.Height), max(1, m.bottomVP.Height))
	m.topVP.SetContent(strings.Join(frame.TopLines, "\n"))
	m.topVP.SetYOffset(frame.TopOffset)
	m.bottomVP.SetContent(strings.Join(frame.BottomLines, "\n"))
	m.bottomVP.SetYOffset(frame.BottomOffset)
}

func (m model) spinner() string {
	switch m.session.Phase {
	case PhaseRunning, PhaseAwaitingModel, PhaseStreaming:
		return spinnerFrames[m.spinnerFrame%len(spinnerFrames)]
	default:
		return ""
	}
}

func (m model) View() string {
	if !m.ready {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	header := headerStyle.Render(appinfo.Display())
	if sp := m.spinner(); sp != "" {
		header += " " + sp
	}
	header += dimStyle.Render(fmt.Sprintf("  $ %s  [%s]", m.session.Command, m.session.Phase))

	topTitle := titleStyle.Render("Command Output")
	if m.session.ExitKnown {
		if m.session.ExitCode == 0 {
			topTitle += okStyle.Render("  exit 0")
		} else {
			topTitle += errStyle.Render(fmt.Sprintf("  exit %d", m.session.ExitCode))
		}
	}
	if m.session.OutputStatus != "" {
		topTitle += "  " + errStyle.Render(truncateLine(m.session.OutputStatus, max(10, m.width-20)))
	}

	bottomTitle := titleStyle.Render("The Duck")
	if strings.TrimSpace(m.opts.GitDiff) != "" {
		bottomTitle += dimStyle.Render(" (context aware)")
	}
	if m.session.ResponseStatus != "" {
		style := dimStyle
		if m.authFailed {
			style = errStyle
		}
		bottomTitle += "  " + style.Render(truncateLine(m.session.ResponseStatus, max(10, m.width-20)))
	}

	divider := dimStyle.Render(strings.Repeat("─", max(1, m.width)))

	help := dimStyle.Render("q/esc quit · ↑/↓ pgup/pgdn scroll output")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		topTitle,
		m.topVP.View(),
		divider,
		bottomTitle,
		m.bottomVP.View(),
		help,
	)
}

func truncateLine(s string, width int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	lines := wrapLines(s, width)
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > 1 {
		return lines[0] + "…"
	}
	return lines[0]
}

func (m model) result() Result {
	fix := ""
	if m.session.Response != "" {
		fix = ExtractFixCommand(m.session.Response)
	}
	return Result{
		Output:      m.session.Output,
		Response:    m.session.Response,
		FixCommand:  fix,
		Phase:       m.session.Phase,
		CommandExit: m.session.ExitCode,
		SpawnFailed: m.spawnFailed,
		AuthFailed:  m.authFailed,
	}
}
