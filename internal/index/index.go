// Package index implements the persistent (run,set) -> FileSet mapping.
// All access is serialized through one mutex; the index is owned
// exclusively by the scheduler.
package index

import (
	"os"
	"sort"
	"sync"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// Index is the in-memory, disk-backed implementation of ports.FileIndex.
type Index struct {
	mu sync.Mutex

	path    string
	setSize int
	pattern *domain.FramePattern

	fileSetMap map[domain.TaskKey]*domain.FileSet
	pathMap    map[string]domain.TaskKey
	modTimeMap map[string]int64

	dirty  bool
	logger ports.Logger
}

// New creates an Index rooted at path (conventionally
// "<watchDir>/.file_index.bin"), for sets of setSize frames whose
// filenames match pattern. pattern is needed only to recover a frame
// number from a bare path when reloading the persistent format, which
// stores paths and modification times but not frame numbers.
func New(path string, setSize int, pattern *domain.FramePattern, logger ports.Logger) *Index {
	return &Index{
		path:       path,
		setSize:    setSize,
		pattern:    pattern,
		fileSetMap: make(map[domain.TaskKey]*domain.FileSet),
		pathMap:    make(map[string]domain.TaskKey),
		modTimeMap: make(map[string]int64),
		logger:     logger,
	}
}

// AddFile implements ports.FileIndex.
func (idx *Index) AddFile(path string, run uint16, frameNumber uint32, modTimeMs int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := domain.KeyFor(run, frameNumber, uint32(idx.setSize))

	set, ok := idx.fileSetMap[key]
	if !ok {
		set = &domain.FileSet{Run: run, SetNumber: key.SetNumber}
		idx.fileSetMap[key] = set
	}
	set.InsertFile(path, frameNumber)

	idx.pathMap[path] = key
	idx.modTimeMap[path] = modTimeMs
	idx.dirty = true
}

// HasFileChanged implements ports.FileIndex.
func (idx *Index) HasFileChanged(path string, modTimeMs int64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	stored, ok := idx.modTimeMap[path]
	return !ok || stored != modTimeMs
}

// MarkFileSetProcessed implements ports.FileIndex.
func (idx *Index) MarkFileSetProcessed(key domain.TaskKey, processed bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if set, ok := idx.fileSetMap[key]; ok {
		set.Processed = processed
		idx.dirty = true
	}
}

// GetFileSet implements ports.FileIndex.
func (idx *Index) GetFileSet(key domain.TaskKey) (domain.FileSet, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	set, ok := idx.fileSetMap[key]
	if !ok {
		return domain.FileSet{}, false
	}
	return cloneSet(set), true
}

// GetAllFileSets implements ports.FileIndex.
func (idx *Index) GetAllFileSets(includeProcessed bool) []domain.FileSet {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	keys := make([]domain.TaskKey, 0, len(idx.fileSetMap))
	for k := range idx.fileSetMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]domain.FileSet, 0, len(keys))
	for _, k := range keys {
		set := idx.fileSetMap[k]
		if !includeProcessed && set.Processed {
			continue
		}
		out = append(out, cloneSet(set))
	}
	return out
}

// Cleanup implements ports.FileIndex. It removes entries for paths that
// no longer satisfy exists, and drops any FileSet left with no files.
// Returns the keys of sets removed entirely.
func (idx *Index) Cleanup(exists func(path string) bool) []domain.TaskKey {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var removedKeys []domain.TaskKey

	for path, key := range idx.pathMap {
		if exists(path) {
			continue
		}
		delete(idx.pathMap, path)
		delete(idx.modTimeMap, path)
		idx.dirty = true

		if set, ok := idx.fileSetMap[key]; ok {
			set.RemoveFile(path)
			if set.Empty() {
				delete(idx.fileSetMap, key)
				removedKeys = append(removedKeys, key)
			}
		}
	}

	return removedKeys
}

// Reconcile implements ports.FileIndex. A crash between the scheduler's
// optimistic MarkFileSetProcessed(key, true) and the processor's archive
// write would otherwise leave that set permanently skipped: future
// incremental scans see an unchanged mtime and never re-touch it. This
// runs once at startup, after Load, to recover any such set.
func (idx *Index) Reconcile(outputDir, codecExt string) []domain.TaskKey {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var reopened []domain.TaskKey
	for key, set := range idx.fileSetMap {
		if !set.Processed {
			continue
		}
		path := set.OutputPathExt(outputDir, codecExt)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			continue
		}
		set.Processed = false
		idx.dirty = true
		reopened = append(reopened, key)
	}
	return reopened
}

// cloneSet returns a value copy of set whose file list is independent
// of the original, so callers cannot mutate index state through a
// snapshot.
func cloneSet(set *domain.FileSet) domain.FileSet {
	return set.Clone()
}
