package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/ast"
	"loom/internal/driver"
)

func writeUnit(t *testing.T, dir, name string, b *ast.Builder) string {
	t.Helper()
	path := filepath.Join(dir, name+driver.UnitExt)
	var buf bytes.Buffer
	if err := ast.EncodeUnit(&buf, b.Finish()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// project creates a directory with a loom.toml whose cache lives inside it.
func project(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = filepath.Join(dir, "loom.toml")
	body := "[cache]\ndir = " + `"` + filepath.ToSlash(filepath.Join(dir, "cache")) + `"` + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func goodUnit() *ast.Builder {
	b := ast.NewBuilder("main.lm")
	b.Add(
		b.Func("answer", nil, b.T("int"), b.Block(b.Return(b.Int(42)))),
		b.Let("x", ast.NoNodeID, b.Call(b.Ident("answer"))),
	)
	return b
}

func TestBuildUsesCacheOnSecondRun(t *testing.T) {
	dir, cfg := project(t)
	unit := writeUnit(t, dir, "main", goodUnit())
	out, err := run(t, "--config", cfg, "--color", "off", "build", unit)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "built 1 units (0 cached)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "main"+driver.ArtifactExt)); err != nil {
		t.Fatalf("artifact: %v", err)
	}
	out, err = run(t, "--config", cfg, "--color", "off", "build", dir)
	if err != nil || !strings.Contains(out, "(1 cached)") {
		t.Fatalf("second build: %v\n%s", err, out)
	}
}

func TestCheckReportsDiagnostics(t *testing.T) {
	dir, cfg := project(t)
	b := ast.NewBuilder("bad.lm")
	b.Add(b.Let("x", ast.NoNodeID, b.Ident("nowhere")))
	unit := writeUnit(t, dir, "bad", b)

	out, err := run(t, "--config", cfg, "--color", "off", "check", unit)
	if !errors.Is(err, errReported) {
		t.Fatalf("want errReported, got %v", err)
	}
	if !strings.Contains(out, "ERROR S3002") || !strings.Contains(out, "1 of 1 units failed") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad"+driver.ArtifactExt)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("check wrote an artifact")
	}

	out, _ = run(t, "--config", cfg, "--diag-format", "summary", "check", unit)
	if !strings.Contains(out, "bad.lasts: 1 error, 0 warnings") {
		t.Fatalf("summary output:\n%s", out)
	}
}

func TestDisasm(t *testing.T) {
	dir, cfg := project(t)
	unit := writeUnit(t, dir, "main", goodUnit())
	if out, err := run(t, "--config", cfg, "build", "--no-cache", unit); err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	out, err := run(t, "--config", cfg, "disasm", filepath.Join(dir, "main"+driver.ArtifactExt))
	if err != nil {
		t.Fatalf("disasm: %v", err)
	}
	for _, want := range []string{"f0 answer", "entry:", "main.lm:"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	_, cfg := project(t)
	out, err := run(t, "--config", cfg, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if payload.Tool != "loomc" || payload.Version == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestInvalidFlags(t *testing.T) {
	_, cfg := project(t)
	if _, err := run(t, "--config", cfg, "--color", "sometimes", "version"); err == nil {
		t.Fatalf("accepted --color sometimes")
	}
	if _, err := run(t, "--config", cfg, "--diag-format", "xml", "version"); err == nil {
		t.Fatalf("accepted --diag-format xml")
	}
	if _, err := run(t, "--config", cfg, "build", "--ui", "maybe", t.TempDir()); err == nil {
		t.Fatalf("accepted --ui maybe")
	}
}
