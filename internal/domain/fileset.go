package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// fileEntry pairs a path with the frame number it was parsed from, so a
// FileSet can keep Files in ascending frame order without re-parsing
// filenames on every insert.
type fileEntry struct {
	path        string
	frameNumber uint32
}

// FileSet is the ordered group of frame paths that make up one set,
// identified by its TaskKey. See the package doc for the invariants a
// FileSet must hold.
type FileSet struct {
	Run       uint16
	SetNumber uint32

	entries []fileEntry

	// FirstFile is the path whose frame number equals SetNumber, or ""
	// if that frame has not yet been observed.
	FirstFile string

	Processed bool
}

// Key returns the TaskKey this set is filed under.
func (s *FileSet) Key() TaskKey {
	return TaskKey{Run: s.Run, SetNumber: s.SetNumber}
}

// Files returns the set's paths ordered by ascending frame number.
func (s *FileSet) Files() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.path
	}
	return out
}

// Len returns the number of distinct frames observed so far.
func (s *FileSet) Len() int {
	return len(s.entries)
}

// Complete reports whether the set has observed setSize distinct files.
func (s *FileSet) Complete(setSize int) bool {
	return len(s.entries) >= setSize
}

// OutputPath computes <outputDir>/<stem-of-firstFile>.lz4, matching the
// original tool's getOutputPath. Returns "" if FirstFile is unset.
func (s *FileSet) OutputPath(outputDir string) string {
	return s.OutputPathExt(outputDir, "lz4")
}

// OutputPathExt computes the archive path using an explicit extension,
// used when the configured codec is not LZ4 (e.g. "snpy").
func (s *FileSet) OutputPathExt(outputDir, ext string) string {
	if s.FirstFile == "" {
		return ""
	}
	base := filepath.Base(s.FirstFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"."+ext)
}

// InsertFile adds path into the set at the position dictated by
// frameNumber, keeping entries sorted ascending. It is idempotent:
// re-inserting the same path is a no-op. Sets FirstFile when
// frameNumber equals the set's own SetNumber.
func (s *FileSet) InsertFile(path string, frameNumber uint32) {
	for _, e := range s.entries {
		if e.path == path {
			return
		}
	}
	pos := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].frameNumber >= frameNumber
	})
	s.entries = append(s.entries, fileEntry{})
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = fileEntry{path: path, frameNumber: frameNumber}
	if frameNumber == s.SetNumber {
		s.FirstFile = path
	}
}

// RemoveFile deletes path from the set, if present, and clears
// FirstFile if it was the removed path.
func (s *FileSet) RemoveFile(path string) {
	for i, e := range s.entries {
		if e.path == path {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	if s.FirstFile == path {
		s.FirstFile = ""
	}
}

// Empty reports whether the set has no remaining files and should be
// removed from the index entirely.
func (s *FileSet) Empty() bool {
	return len(s.entries) == 0
}

// Clone returns a deep value copy, safe for a caller to hold and read
// without risk of observing concurrent mutation of the original.
func (s *FileSet) Clone() FileSet {
	out := FileSet{
		Run:       s.Run,
		SetNumber: s.SetNumber,
		FirstFile: s.FirstFile,
		Processed: s.Processed,
		entries:   make([]fileEntry, len(s.entries)),
	}
	copy(out.entries, s.entries)
	return out
}
