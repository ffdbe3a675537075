// Package config loads loom.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/zeebo/xxh3"

	"loom/internal/diagfmt"
	"loom/internal/trace"
)

// FileName is the configuration file looked up from the working directory upwards.
const FileName = "loom.toml"

type Config struct {
	Path string `toml:"-"` // file the config was read from; empty for defaults

	Compile     CompileConfig                `toml:"compile"`
	Diagnostics DiagnosticsConfig            `toml:"diagnostics"`
	Trace       TraceConfig                  `toml:"trace"`
	Cache       CacheConfig                  `toml:"cache"`
	Externs     map[string]map[string]uint64 `toml:"externs"`
}

type CompileConfig struct {
	MaxDiagnostics   int `toml:"max_diagnostics"`
	TRegisters       int `toml:"t_registers"`
	RRegisters       int `toml:"r_registers"`
	MaxTryDepth      int `toml:"max_try_depth"`
	Jobs             int `toml:"jobs"` // 0 = GOMAXPROCS
	MaxResolveSweeps int `toml:"max_resolve_sweeps"`
}

type DiagnosticsConfig struct {
	Format   string `toml:"format"` // pretty|json|summary
	PathMode string `toml:"path_mode"`
	Context  int    `toml:"context"`
	Notes    bool   `toml:"notes"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // "" = user cache dir
}

// Default returns the configuration used when no loom.toml is found.
func Default() Config {
	return Config{
		Compile: CompileConfig{
			MaxDiagnostics:   100,
			TRegisters:       16,
			RRegisters:       16,
			MaxTryDepth:      32,
			MaxResolveSweeps: 8,
		},
		Diagnostics: DiagnosticsConfig{Format: "pretty", PathMode: "auto", Context: 1, Notes: true},
		Trace:       TraceConfig{Level: "off", Output: "-", Mode: "ring"},
		Cache:       CacheConfig{Enabled: true},
	}
}

// Find walks up from startDir looking for loom.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest loom.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), err
	}
	return Load(path)
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	cc := c.Compile
	for _, f := range []struct {
		name string
		v    int
		min  int
	}{
		{"max_diagnostics", cc.MaxDiagnostics, 1},
		{"t_registers", cc.TRegisters, 1},
		{"r_registers", cc.RRegisters, 1},
		{"max_try_depth", cc.MaxTryDepth, 1},
		{"jobs", cc.Jobs, 0},
		{"max_resolve_sweeps", cc.MaxResolveSweeps, 0},
	} {
		if f.v < f.min {
			return fmt.Errorf("[compile].%s must be at least %d, got %d", f.name, f.min, f.v)
		}
	}
	switch c.Diagnostics.Format {
	case "pretty", "json", "summary":
	default:
		return fmt.Errorf("[diagnostics].format must be pretty, json or summary, got %q", c.Diagnostics.Format)
	}
	if _, ok := diagfmt.ParsePathMode(c.Diagnostics.PathMode); !ok {
		return fmt.Errorf("[diagnostics].path_mode: unknown mode %q", c.Diagnostics.PathMode)
	}
	if c.Diagnostics.Context < 0 || c.Diagnostics.Context > 10 {
		return fmt.Errorf("[diagnostics].context must be within 0..10, got %d", c.Diagnostics.Context)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	for lib, syms := range c.Externs {
		for sym, h := range syms {
			if h == 0 {
				return fmt.Errorf("[externs.%s].%s: handle 0 is reserved", lib, sym)
			}
		}
	}
	return nil
}

// Jobs is the effective number of parallel unit compilations.
func (c *Config) Jobs() int {
	if c.Compile.Jobs > 0 {
		return c.Compile.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// CacheDir is the effective cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no cache directory: %w", err)
	}
	return filepath.Join(base, "loom"), nil
}

// Digest fingerprints every setting that changes compiled output, so cached
// programs are invalidated when one of them changes.
func (c *Config) Digest() string {
	var sb strings.Builder
	for _, v := range []int{c.Compile.TRegisters, c.Compile.RRegisters, c.Compile.MaxTryDepth, c.Compile.MaxResolveSweeps} {
		sb.WriteString(strconv.Itoa(v))
		sb.WriteByte(';')
	}
	libs := make([]string, 0, len(c.Externs))
	for lib := range c.Externs {
		libs = append(libs, lib)
	}
	slices.Sort(libs)
	for _, lib := range libs {
		syms := make([]string, 0, len(c.Externs[lib]))
		for sym := range c.Externs[lib] {
			syms = append(syms, sym)
		}
		slices.Sort(syms)
		for _, sym := range syms {
			fmt.Fprintf(&sb, "%s.%s=%d;", lib, sym, c.Externs[lib][sym])
		}
	}
	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}
