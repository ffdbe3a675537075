package source

// FileID indexes a file within a FileSet.
type FileID uint32

// FileFlags carries per-file metadata.
type FileFlags uint8

const (
	FileVirtual   FileFlags = 1 << iota // added from memory, not read from disk
	FileNoContent                       // the unit shipped the path but not the text
)

// File is one source file and its line index.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offset of each line start
	Flags   FileFlags
}

// LineCol is a 1-based line and byte column.
type LineCol struct {
	Line uint32
	Col  uint32
}
