// Package appinfo holds the binary's identity for the TUI header and
// -version output.
package appinfo

const Name = "rubberduck"

// Version is a var, not a const, so release builds can stamp it:
//
//	go build -ldflags "-X rubberduck/internal/appinfo.Version=0.2.0"
var Version = "0.1.0"

// Display is the "rubberduck v0.1.0" string shown to the user.
func Display() string {
	if Version == "" {
		return Name + " vdev"
	}
	return Name + " v" + Version
}
