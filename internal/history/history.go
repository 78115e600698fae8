// Package history resolves the most recent command from the user's shell
// history file. zsh, bash and fish formats are supported; anything else is
// read as plain bash-style history.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoCommand = errors.New("no command found in history")

// LastCommand returns the most recent meaningful entry from the shell history.
// shellPath is the interpreter path (typically $SHELL); the history file is
// taken from $HISTFILE when set, otherwise the shell's conventional location.
func LastCommand(shellPath string) (string, error) {
	shell := shellName(shellPath)
	path, err := historyPath(shell)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read history file %s: %w", path, err)
	}
	return lastFromContents(shell, string(data))
}

func shellName(shellPath string) string {
	return strings.ToLower(filepath.Base(strings.TrimSpace(shellPath)))
}

func historyPath(shell string) (string, error) {
	if env := strings.TrimSpace(os.Getenv("HISTFILE")); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	switch shell {
	case "zsh":
		return filepath.Join(home, ".zsh_history"), nil
	case "fish":
		return filepath.Join(home, ".local/share/fish/fish_history"), nil
	default:
		return filepath.Join(home, ".bash_history"), nil
	}
}

func lastFromContents(shell string, contents string) (string, error) {
	lines := strings.Split(contents, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		cmd := parseLine(shell, line)
		if cmd == "" {
			continue
		}
		if isSelfInvocation(cmd) {
			continue
		}
		return cmd, nil
	}
	return "", ErrNoCommand
}

func parseLine(shell string, line string) string {
	switch shell {
	case "zsh":
		// Extended format: ": 1678990000:0;cargo run"
		if pos := strings.Index(line, ";"); pos >= 0 {
			return strings.TrimSpace(line[pos+1:])
		}
		if strings.HasPrefix(line, ":") {
			return ""
		}
		return line
	case "fish":
		// YAML-ish entries: "- cmd: cargo run"
		if rest, ok := strings.CutPrefix(line, "- cmd: "); ok {
			return strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(line, "cmd: "); ok {
			return strings.TrimSpace(rest)
		}
		// Metadata lines like "when: 1678990000".
		return ""
	default:
		// bash history may contain "#<timestamp>" lines when HISTTIMEFORMAT is set.
		if strings.HasPrefix(line, "#") {
			return ""
		}
		return line
	}
}

// isSelfInvocation filters out runs of this tool itself so a re-run diagnoses
// the command before it, not the diagnosis.
func isSelfInvocation(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return true
	}
	base := filepath.Base(fields[0])
	return base == "duck" || base == "rubberduck"
}
