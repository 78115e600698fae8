// Package sysinfo describes the host OS for the model prompt so install
// suggestions use the right package manager.
package sysinfo

import (
	"os"
	"runtime"
	"strings"
)

const osReleasePath = "/etc/os-release"

// Describe returns a short human-readable platform string, e.g.
// "Ubuntu 24.04 (apt)" or "darwin/arm64 (brew)".
func Describe() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile(osReleasePath); err == nil {
			if desc := fromOSRelease(string(data)); desc != "" {
				return desc
			}
		}
	}
	desc := runtime.GOOS + "/" + runtime.GOARCH
	if pm := packageManagerFor(runtime.GOOS, ""); pm != "" {
		desc += " (" + pm + ")"
	}
	return desc
}

func fromOSRelease(contents string) string {
	var pretty, id, idLike string
	for _, line := range strings.Split(contents, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "PRETTY_NAME":
			pretty = value
		case "ID":
			id = value
		case "ID_LIKE":
			idLike = value
		}
	}
	if pretty == "" {
		return ""
	}
	if pm := packageManagerFor("linux", id+" "+idLike); pm != "" {
		return pretty + " (" + pm + ")"
	}
	return pretty
}

func packageManagerFor(goos string, distroHint string) string {
	switch goos {
	case "darwin":
		return "brew"
	case "windows":
		return "winget"
	case "linux":
	default:
		return ""
	}
	hint := strings.ToLower(distroHint)
	switch {
	case containsAny(hint, "debian", "ubuntu"):
		return "apt"
	case containsAny(hint, "fedora", "rhel", "centos"):
		return "dnf"
	case containsAny(hint, "arch"):
		return "pacman"
	case containsAny(hint, "alpine"):
		return "apk"
	case containsAny(hint, "suse"):
		return "zypper"
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
