package history

import (
	"errors"
	"testing"
)

func TestLastFromContents(t *testing.T) {
	cases := []struct {
		name     string
		shell    string
		contents string
		want     string
		wantErr  bool
	}{
		{
			name:     "bash_plain",
			shell:    "bash",
			contents: "ls -la\ncargo build\n",
			want:     "cargo build",
		},
		{
			name:     "bash_skips_timestamps",
			shell:    "bash",
			contents: "make test\n#1678990000\n",
			want:     "make test",
		},
		{
			name:     "zsh_extended_format",
			shell:    "zsh",
			contents: ": 1678990000:0;ls /nonexistent\n",
			want:     "ls /nonexistent",
		},
		{
			name:     "zsh_plain_line",
			shell:    "zsh",
			contents: "git status\n",
			want:     "git status",
		},
		{
			name:     "fish_cmd_entries",
			shell:    "fish",
			contents: "- cmd: npm run dev\n  when: 1678990000\n",
			want:     "npm run dev",
		},
		{
			name:     "skips_self_invocation",
			shell:    "bash",
			contents: "ls /nonexistent\nduck -cmd foo\n",
			want:     "ls /nonexistent",
		},
		{
			name:     "empty_history",
			shell:    "bash",
			contents: "\n\n",
			wantErr:  true,
		},
		{
			name:     "zsh_metadata_only",
			shell:    "zsh",
			contents: ": 1678990000:0\n",
			wantErr:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := lastFromContents(tc.shell, tc.contents)
			if tc.wantErr {
				if !errors.Is(err, ErrNoCommand) {
					t.Fatalf("expected ErrNoCommand, got %v (cmd %q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestShellName(t *testing.T) {
	if got := shellName("/usr/bin/ZSH"); got != "zsh" {
		t.Fatalf("expected zsh, got %q", got)
	}
	if got := shellName(""); got != "." {
		t.Fatalf("expected fallback basename, got %q", got)
	}
}
