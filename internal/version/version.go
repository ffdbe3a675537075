package version

import (
	"fmt"
	"runtime/debug"

	"github.com/fatih/color"
)

// Build metadata for loomc. Overridden at link time via -ldflags "-X".
var (
	Major = "0"
	Minor = "3"
	Patch = "0"
	Pre   = "dev"

	GitCommit = ""
	BuildDate = ""
)

// String returns the plain semantic version.
func String() string {
	v := Major + "." + Minor + "." + Patch
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}

// Colored renders the version with each component highlighted.
func Colored() string {
	major := color.New(color.FgYellow, color.Bold)
	minor := color.New(color.FgGreen, color.Bold)
	patch := color.New(color.FgBlue, color.Bold)
	v := major.Sprint(Major) + "." + minor.Sprint(Minor) + "." + patch.Sprint(Patch)
	if Pre != "" {
		v += "-" + Pre
	}
	return v
}

// Commit returns GitCommit, falling back to the VCS revision embedded by the go tool.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// Describe formats a multi-line version banner.
func Describe(colored bool) string {
	v := String()
	if colored {
		v = Colored()
	}
	out := fmt.Sprintf("loomc %s\n", v)
	if c := Commit(); c != "" {
		out += fmt.Sprintf("commit: %s\n", c)
	}
	if BuildDate != "" {
		out += fmt.Sprintf("built:  %s\n", BuildDate)
	}
	return out
}
