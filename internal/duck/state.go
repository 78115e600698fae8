package duck

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Session is the display model for one diagnosis run. All update methods are
// pure: they take the session by value, return the updated value, and never
// perform I/O. Replaying the same update sequence twice yields identical
// sessions, which the tests rely on.
type Session struct {
	Command string
	Phase   Phase

	// Output is the merged stdout/stderr of the replayed command, append-only.
	Output string
	// Response is the streamed model text, append-only.
	Response string

	ExitCode  int
	ExitKnown bool

	// OutputStatus / ResponseStatus are one-line notices rendered in the pane
	// title area (spawn failures, stream errors, "no model configured").
	OutputStatus   string
	ResponseStatus string

	// OutputScroll is the top pane scroll offset in wrapped lines from the
	// top; -1 follows the tail. The bottom pane always follows the tail.
	OutputScroll int
}

func NewSession(command string) Session {
	return Session{Command: command, OutputScroll: -1}
}

func (s Session) AppendOutput(data []byte) Session {
	if len(data) == 0 {
		return s
	}
	s.Output += string(data)
	return s
}

func (s Session) AppendResponse(text string) Session {
	if text == "" {
		return s
	}
	s.Response += text
	return s
}

func (s Session) SetPhase(p Phase) Session {
	s.Phase = advance(s.Phase, p)
	return s
}

func (s Session) SetExit(code int) Session {
	if s.ExitKnown {
		return s
	}
	s.ExitCode = code
	s.ExitKnown = true
	return s
}

func (s Session) WithOutputStatus(status string) Session {
	s.OutputStatus = status
	return s
}

func (s Session) WithResponseStatus(status string) Session {
	s.ResponseStatus = status
	return s
}

// Scroll moves the top pane by delta wrapped lines. Scrolling up detaches
// from the tail; scrolling past the end re-attaches. Clamping to the real
// line count happens at render time, when the wrap width is known.
func (s Session) Scroll(delta int, visibleLines int, totalLines int) Session {
	cur := s.OutputScroll
	if cur < 0 {
		cur = max(0, totalLines-visibleLines)
	}
	cur = max(0, cur+delta)
	maxOffset := max(0, totalLines-visibleLines)
	if cur >= maxOffset {
		s.OutputScroll = -1
		return s
	}
	s.OutputScroll = cur
	return s
}

// Frame is the derived view over a Session: wrapped lines plus resolved
// scroll offsets. It is recomputed from the raw buffers on every render and
// never stored.
type Frame struct {
	TopLines     []string
	BottomLines  []string
	TopOffset    int
	BottomOffset int
}

// RenderFrame wraps both buffers to width and resolves scroll positions for
// panes of the given heights.
func (s Session) RenderFrame(width int, topHeight int, bottomHeight int) Frame {
	top := wrapLines(s.Output, width)
	bottom := wrapLines(s.Response, width)

	topOffset := s.OutputScroll
	maxTop := max(0, len(top)-topHeight)
	if topOffset < 0 || topOffset > maxTop {
		topOffset = maxTop
	}
	return Frame{
		TopLines:     top,
		BottomLines:  bottom,
		TopOffset:    topOffset,
		BottomOffset: max(0, len(bottom)-bottomHeight),
	}
}

// wrapLines hard-wraps text to width using display cell widths. The raw
// buffer is never mutated; wrapping drift cannot accumulate across renders.
func wrapLines(text string, width int) []string {
	if text == "" {
		return nil
	}
	if width < 1 {
		width = 1
	}
	var out []string
	for _, raw := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		raw = strings.ReplaceAll(raw, "\t", "    ")
		if raw == "" {
			out = append(out, "")
			continue
		}
		var line strings.Builder
		cells := 0
		for _, r := range raw {
			rw := runewidth.RuneWidth(r)
			if rw < 0 {
				rw = 0
			}
			if cells+rw > width && cells > 0 {
				out = append(out, line.String())
				line.Reset()
				cells = 0
			}
			line.WriteRune(r)
			cells += rw
		}
		out = append(out, line.String())
	}
	return out
}

func max(a int, b int) int {
	if a > b {
		return a
	}
	return b
}
