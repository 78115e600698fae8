package llm

import (
	"fmt"
	"strings"
)

// Prompt is the fully assembled request content for one diagnosis.
type Prompt struct {
	System string
	User   string
}

// PromptInput collects everything known about the failed command before the
// stream is opened. CapturedOutput is the frozen merged stdout/stderr.
type PromptInput struct {
	Command        string
	CapturedOutput string
	ExitCode       int
	GitDiff        string
	Platform       string
}

// BuildPrompt renders the system and user messages. The response contract
// (one-line root cause, fenced fixed command, install hint) is what the fix
// extractor downstream relies on.
func BuildPrompt(in PromptInput) Prompt {
	system := fmt.Sprintf(
		"Expert CLI debugging assistant running on %s. Your goal is to solve the user's error instantly. "+
			"Do not give generic advice like 'check the manual' or 'read the help page'.\n\n"+
			"Follow this exact structure:\n"+
			"1) One short punchy sentence explaining the root cause.\n"+
			"2) A FIXED command wrapped in a markdown fenced code block (```bash ... ```).\n"+
			"3) If a package is likely missing, provide the specific install command for the detected OS "+
			"(use the native package manager).\n"+
			"Keep responses concise and immediately actionable.",
		in.Platform,
	)

	var user strings.Builder
	fmt.Fprintf(&user, "FAILED COMMAND: %s\n", strings.TrimSpace(in.Command))
	fmt.Fprintf(&user, "EXIT CODE: %d\n\n", in.ExitCode)
	user.WriteString("OUTPUT:\n")
	output := strings.TrimSpace(in.CapturedOutput)
	if output == "" {
		output = "(no output captured)"
	}
	user.WriteString(output)
	if diff := strings.TrimSpace(in.GitDiff); diff != "" {
		user.WriteString("\n\nRECENT CODE CHANGES:\n")
		user.WriteString(diff)
	}
	return Prompt{System: system, User: user.String()}
}
