package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestStringIncludesPrerelease(t *testing.T) {
	origPre := Pre
	defer func() { Pre = origPre }()

	Pre = "rc.1"
	if got := String(); !strings.HasSuffix(got, "-rc.1") {
		t.Fatalf("String() = %q, want -rc.1 suffix", got)
	}
	Pre = ""
	if got := String(); strings.Contains(got, "-") {
		t.Fatalf("String() = %q, want no prerelease", got)
	}
}

func TestDescribeWithOverrides(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit = "abc123"
	BuildDate = "2026-01-15"
	out := Describe(false)
	for _, want := range []string{"loomc " + String(), "commit: abc123", "built:  2026-01-15"} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe() missing %q in %q", want, out)
		}
	}
}

func TestColoredPlainWhenDisabled(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	color.NoColor = true
	if Colored() != String() {
		t.Fatalf("Colored() = %q, want %q", Colored(), String())
	}
}
