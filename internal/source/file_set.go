package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

type FileID uint32

// File is one registered input: a unit manifest or any other text a span may
// point into.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offset of every line start
	Hash    [32]byte
}

// Position is a resolved 1-based line/column location.
type Position struct {
	Path string
	Line int
	Col  int
}

// FileSet registers files and resolves spans back to line/column positions.
type FileSet struct {
	files []File
	index map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores content under path and returns a fresh FileID. Re-adding a path
// registers a new file and points the index at the latest version.
func (fs *FileSet) Add(path string, content []byte) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file count overflow: %w", err))
	}
	id := FileID(lenFiles)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
	})
	fs.index[path] = id
	return id
}

// Load reads path from disk and registers it.
func (fs *FileSet) Load(path string) (FileID, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		return 0, err
	}
	return fs.Add(path, content), nil
}

// Get returns the file for id.
func (fs *FileSet) Get(id FileID) (*File, bool) {
	if int(id) >= len(fs.files) {
		return nil, false
	}
	return &fs.files[id], true
}

// ByPath returns the latest file registered under path.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	id, ok := fs.index[path]
	if !ok {
		return nil, false
	}
	return fs.Get(id)
}

func (fs *FileSet) Len() int {
	return len(fs.files)
}

// PositionFor resolves the start of a span to a 1-based line/column.
func (fs *FileSet) PositionFor(sp Span) (Position, bool) {
	f, ok := fs.Get(sp.File)
	if !ok {
		return Position{}, false
	}
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > sp.Start
	})
	if line == 0 {
		// Line index always contains offset 0; a miss means a corrupt span.
		return Position{Path: f.Path, Line: 1, Col: 1}, true
	}
	lineStart := f.LineIdx[line-1]
	return Position{
		Path: f.Path,
		Line: line,
		Col:  int(sp.Start-lineStart) + 1,
	}, true
}

// LineText returns the text of the 1-based line containing the span start,
// without its trailing newline.
func (fs *FileSet) LineText(sp Span) (string, bool) {
	f, ok := fs.Get(sp.File)
	if !ok {
		return "", false
	}
	pos, ok := fs.PositionFor(sp)
	if !ok {
		return "", false
	}
	start := f.LineIdx[pos.Line-1]
	end := uint32(len(f.Content))
	if pos.Line < len(f.LineIdx) {
		end = f.LineIdx[pos.Line]
	}
	text := f.Content[start:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return string(text), true
}

func buildLineIndex(content []byte) []uint32 {
	idx := make([]uint32, 1, 64)
	idx[0] = 0
	for i, b := range content {
		if b == '\n' {
			idx = append(idx, uint32(i)+1)
		}
	}
	return idx
}
