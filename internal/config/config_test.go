package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[compile]
t_registers = 4
jobs = 2

[trace]
level = "phase"

[externs.libc]
puts = 1
abs = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compile.TRegisters != 4 || cfg.Compile.RRegisters != 16 {
		t.Errorf("registers = %d/%d", cfg.Compile.TRegisters, cfg.Compile.RRegisters)
	}
	if cfg.Jobs() != 2 {
		t.Errorf("jobs = %d", cfg.Jobs())
	}
	if cfg.Compile.MaxDiagnostics != 100 || !cfg.Cache.Enabled {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Trace.Level != "phase" || cfg.Trace.Mode != "ring" {
		t.Errorf("trace = %+v", cfg.Trace)
	}
	if cfg.Externs["libc"]["abs"] != 2 {
		t.Errorf("externs = %v", cfg.Externs)
	}
	if cfg.Path != path {
		t.Errorf("path = %q", cfg.Path)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[compile]\nregisters = 3\n", "unknown keys: compile.registers"},
		{"range", "[compile]\nt_registers = 0\n", "t_registers must be at least 1"},
		{"format", "[diagnostics]\nformat = \"xml\"\n", "[diagnostics].format"},
		{"level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"handle", "[externs.libc]\nputs = 0\n", "handle 0 is reserved"},
		{"syntax", "[compile\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[compile]\nmax_try_depth = 5\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Compile.MaxTryDepth != 5 {
		t.Errorf("max_try_depth = %d", cfg.Compile.MaxTryDepth)
	}
}

func TestDigestTracksOutputSettings(t *testing.T) {
	a, b := Default(), Default()
	if a.Digest() != b.Digest() {
		t.Fatal("equal configs differ")
	}
	b.Compile.MaxDiagnostics = 7
	if a.Digest() != b.Digest() {
		t.Error("max_diagnostics does not affect output")
	}
	b.Externs = map[string]map[string]uint64{"libc": {"puts": 1}}
	if a.Digest() == b.Digest() {
		t.Error("externs must change the digest")
	}
	b.Externs = nil
	b.Compile.TRegisters = 8
	if a.Digest() == b.Digest() {
		t.Error("register count must change the digest")
	}
}
