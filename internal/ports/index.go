package ports

import "github.com/lattice-sci/frameark/internal/domain"

// FileIndex is the persistent (run,set) -> FileSet mapping the scanner
// populates and the scheduler drains. One FileIndex is owned exclusively
// by the scheduler; every method is expected to take and release its own
// internal lock for the duration of the call.
type FileIndex interface {
	// AddFile upserts path's observation, computing its TaskKey from run
	// and frameNumber. It is idempotent for an unchanged modTime.
	AddFile(path string, run uint16, frameNumber uint32, modTimeMs int64)

	// HasFileChanged reports whether path is unknown to the index or its
	// stored modification time differs from modTimeMs.
	HasFileChanged(path string, modTimeMs int64) bool

	// MarkFileSetProcessed flips the processed flag of the set at key.
	// It is a no-op if key is unknown.
	MarkFileSetProcessed(key domain.TaskKey, processed bool)

	// GetFileSet returns a snapshot copy of the set at key, and whether
	// it exists.
	GetFileSet(key domain.TaskKey) (domain.FileSet, bool)

	// GetAllFileSets returns a snapshot of every known set, ordered by
	// TaskKey. If includeProcessed is false, processed sets are omitted.
	GetAllFileSets(includeProcessed bool) []domain.FileSet

	// Cleanup removes entries whose backing file no longer exists
	// (exists is the injected existence check) and removes sets left
	// with no files.
	Cleanup(exists func(path string) bool) []domain.TaskKey

	// Load populates the index from its on-disk representation. A
	// missing file leaves the index empty and returns nil; a corrupt
	// file leaves it empty and returns ErrIndexCorrupt so the caller can
	// log it and continue.
	Load() error

	// Save persists the index if it has unsaved changes.
	Save() error

	// Reconcile clears the processed flag of every set marked processed
	// whose archive is absent from outputDir, recovering from a crash
	// between the scheduler's optimistic mark and the processor's
	// archive write. It returns the keys it reopened.
	Reconcile(outputDir, codecExt string) []domain.TaskKey
}
