package duck

import (
	"reflect"
	"strings"
	"testing"
)

func TestSessionReplayIsDeterministic(t *testing.T) {
	run := func() Session {
		s := NewSession("cargo build")
		s = s.SetPhase(PhaseRunning)
		s = s.AppendOutput([]byte("error[E0425]: cannot find value\n"))
		s = s.AppendOutput([]byte("  --> src/main.rs:3:5\n"))
		s = s.SetExit(101).SetPhase(PhaseAwaitingModel).SetPhase(PhaseStreaming)
		s = s.AppendResponse("You have a typo. ")
		s = s.AppendResponse("Fix the identifier.")
		s = s.SetPhase(PhaseDone)
		return s
	}
	a, b := run(), run()
	if a != b {
		t.Fatalf("same update sequence produced different sessions:\n%+v\n%+v", a, b)
	}
}

func TestAppendIsExactConcatenation(t *testing.T) {
	chunks := []string{"one ", "", "two ", "three"}
	s := NewSession("x")
	for _, c := range chunks {
		s = s.AppendResponse(c)
	}
	if s.Response != "one two three" {
		t.Fatalf("response = %q", s.Response)
	}

	s2 := NewSession("x")
	s2 = s2.AppendOutput([]byte("partial "))
	s2 = s2.AppendOutput(nil)
	s2 = s2.AppendOutput([]byte("output"))
	if s2.Output != "partial output" {
		t.Fatalf("output = %q", s2.Output)
	}
}

func TestPartialResponseSurvivesStreamFailure(t *testing.T) {
	s := NewSession("x").SetPhase(PhaseRunning).SetExit(1).
		SetPhase(PhaseAwaitingModel).SetPhase(PhaseStreaming)
	s = s.AppendResponse("The root cause is")
	s = s.WithResponseStatus("stream failed after 1 chunk").SetPhase(PhaseDone)
	if s.Response != "The root cause is" {
		t.Fatalf("partial response lost: %q", s.Response)
	}
	if s.Phase != PhaseDone {
		t.Fatalf("phase = %s, want done", s.Phase)
	}
}

func TestSetExitFirstWins(t *testing.T) {
	s := NewSession("x").SetExit(2).SetExit(0)
	if !s.ExitKnown || s.ExitCode != 2 {
		t.Fatalf("exit = %d known=%v, want first value 2", s.ExitCode, s.ExitKnown)
	}
}

func TestScrollDetachAndReattach(t *testing.T) {
	s := NewSession("x")
	if s.OutputScroll != -1 {
		t.Fatalf("new session should follow the tail")
	}

	// 30 wrapped lines in a 10-line pane: tail offset is 20.
	s = s.Scroll(-1, 10, 30)
	if s.OutputScroll != 19 {
		t.Fatalf("scroll up from tail: offset = %d, want 19", s.OutputScroll)
	}
	s = s.Scroll(-100, 10, 30)
	if s.OutputScroll != 0 {
		t.Fatalf("scroll clamps at top: offset = %d", s.OutputScroll)
	}
	s = s.Scroll(100, 10, 30)
	if s.OutputScroll != -1 {
		t.Fatalf("scrolling past the end should re-attach, offset = %d", s.OutputScroll)
	}

	// Short content never detaches.
	s = s.Scroll(-1, 10, 5)
	if s.OutputScroll != -1 {
		t.Fatalf("content shorter than the pane should stay attached, offset = %d", s.OutputScroll)
	}
}

func TestWrapLines(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 80, nil},
		{"single line", "hello\n", 80, []string{"hello"}},
		{"hard wrap", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"blank lines kept", "a\n\nb", 80, []string{"a", "", "b"}},
		{"tabs expand", "\tx", 80, []string{"    x"}},
		{"wide runes wrap by cells", "日本語", 4, []string{"日本", "語"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapLines(tt.text, tt.width)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("wrapLines(%q, %d) = %#v, want %#v", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapLinesDoesNotMutateBuffer(t *testing.T) {
	raw := "line one\nline two\n"
	s := NewSession("x").AppendOutput([]byte(raw))
	for i := 0; i < 3; i++ {
		s.RenderFrame(5, 2, 2)
	}
	if s.Output != raw {
		t.Fatalf("render mutated the buffer: %q", s.Output)
	}
}

func TestRenderFrameOffsets(t *testing.T) {
	s := NewSession("x").AppendOutput([]byte(strings.Repeat("line\n", 10)))

	f := s.RenderFrame(80, 3, 3)
	if f.TopOffset != 7 {
		t.Fatalf("tail offset = %d, want 7", f.TopOffset)
	}

	s.OutputScroll = 2
	f = s.RenderFrame(80, 3, 3)
	if f.TopOffset != 2 {
		t.Fatalf("detached offset = %d, want 2", f.TopOffset)
	}

	s.OutputScroll = 100
	f = s.RenderFrame(80, 3, 3)
	if f.TopOffset != 7 {
		t.Fatalf("out-of-range offset should clamp to tail, got %d", f.TopOffset)
	}

	s = s.AppendResponse("a\nb\nc\nd\ne")
	f = s.RenderFrame(80, 3, 3)
	if f.BottomOffset != 2 {
		t.Fatalf("bottom pane should follow the tail, offset = %d", f.BottomOffset)
	}
}
