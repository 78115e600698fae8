// Package gitctx gathers recent uncommitted changes to enrich the diagnosis
// prompt. All failures are treated as "no context available".
package gitctx

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const (
	diffTimeout  = 3 * time.Second
	maxDiffBytes = 16 * 1024
)

// RecentDiff returns `git diff HEAD` for the working directory, truncated to a
// prompt-friendly size. The empty string means no repo, no changes, or git
// unavailable.
func RecentDiff(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, diffTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "diff", "HEAD")
	if strings.TrimSpace(dir) != "" {
		cmd.Dir = dir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	diff := strings.TrimSpace(out.String())
	if len(diff) > maxDiffBytes {
		diff = diff[:maxDiffBytes] + "\n… (diff truncated)"
	}
	return diff
}
