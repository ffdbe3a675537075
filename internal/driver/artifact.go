package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"loom/internal/bytecode"
	"loom/internal/debuginfo"
)

// ArtifactExt is the extension of program files written by a build.
const ArtifactExt = ".lbc"

// UnitExt is the extension of encoded input units.
const UnitExt = ".lasts"

// Artifact is the on-disk form of a compiled unit: the program and its
// debug table.
type Artifact struct {
	Program *bytecode.Program `msgpack:"program"`
	Debug   *debuginfo.Table  `msgpack:"debug,omitempty"`
}

// ErrNoProgram is returned when an artifact file carries no program.
var ErrNoProgram = errors.New("artifact has no program")

// Encode writes a as msgpack.
func (a *Artifact) Encode(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return nil
}

// DecodeArtifact reads and validates an artifact.
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Program == nil {
		return nil, ErrNoProgram
	}
	if a.Program.Version != bytecode.ProgramVersion {
		return nil, fmt.Errorf("%w: %d", bytecode.ErrProgramVersion, a.Program.Version)
	}
	if err := a.Program.Validate(); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// ReadArtifact loads an artifact file.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := DecodeArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteArtifact writes a to path through a temporary file, so readers never
// observe a partial program.
func WriteArtifact(path string, a *Artifact) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*"+ArtifactExt)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = a.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// OutputPath maps an input unit to its artifact: the unit's base name with
// ArtifactExt, inside outDir or next to the input when outDir is empty.
func OutputPath(unit, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(unit), filepath.Ext(unit)) + ArtifactExt
	if outDir == "" {
		return filepath.Join(filepath.Dir(unit), base)
	}
	return filepath.Join(outDir, base)
}
