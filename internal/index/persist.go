package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// maxPathLen is the fixed path field width in the persistent format:
// "char[512] path".
const maxPathLen = 512

// Load implements ports.FileIndex. A missing file leaves the index
// empty, which is the expected state on first run. A corrupt file
// leaves the index empty and returns domain.ErrIndexCorrupt; the caller
// logs it and proceeds, rebuilding from the next scan.
func (idx *Index) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, err := os.Open(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: opening index: %v", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	fileSetMap, pathMap, modTimeMap, err := idx.decodeIndex(r)
	if err != nil {
		idx.fileSetMap = make(map[domain.TaskKey]*domain.FileSet)
		idx.pathMap = make(map[string]domain.TaskKey)
		idx.modTimeMap = make(map[string]int64)
		return fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}

	idx.fileSetMap = fileSetMap
	idx.pathMap = pathMap
	idx.modTimeMap = modTimeMap
	idx.dirty = false
	return nil
}

// Save implements ports.FileIndex. It writes atomically via a temp file
// plus rename, and only if the index has unsaved changes.
func (idx *Index) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.dirty {
		return nil
	}

	tmp := idx.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := encodeIndex(w, idx.fileSetMap, idx.modTimeMap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming index: %w", err)
	}

	idx.dirty = false
	return nil
}

// encodeIndex writes the persistent format:
//
//	uint32 setCount
//	{ u16 run; u32 setNumber; u8 processed; u32 fileCount;
//	  { char[512] path; i64 modTimeMs; } × fileCount
//	} × setCount
func encodeIndex(w *bufio.Writer, fileSetMap map[domain.TaskKey]*domain.FileSet, modTimeMap map[string]int64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(fileSetMap))); err != nil {
		return err
	}

	for key, set := range fileSetMap {
		if err := binary.Write(w, binary.LittleEndian, key.Run); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, key.SetNumber); err != nil {
			return err
		}
		processed := uint8(0)
		if set.Processed {
			processed = 1
		}
		if err := binary.Write(w, binary.LittleEndian, processed); err != nil {
			return err
		}

		files := set.Files()
		if err := binary.Write(w, binary.LittleEndian, uint32(len(files))); err != nil {
			return err
		}
		for _, path := range files {
			var pathBuf [maxPathLen]byte
			if len(path) >= maxPathLen {
				return fmt.Errorf("path %q exceeds %d bytes", path, maxPathLen-1)
			}
			copy(pathBuf[:], path)
			if _, err := w.Write(pathBuf[:]); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, modTimeMap[path]); err != nil {
				return err
			}
		}
	}

	return nil
}

func (idx *Index) decodeIndex(r *bufio.Reader) (map[domain.TaskKey]*domain.FileSet, map[string]domain.TaskKey, map[string]int64, error) {
	var setCount uint32
	if err := binary.Read(r, binary.LittleEndian, &setCount); err != nil {
		return nil, nil, nil, err
	}

	fileSetMap := make(map[domain.TaskKey]*domain.FileSet, setCount)
	pathMap := make(map[string]domain.TaskKey)
	modTimeMap := make(map[string]int64)

	for i := uint32(0); i < setCount; i++ {
		var run uint16
		var setNumber uint32
		var processed uint8
		var fileCount uint32

		if err := binary.Read(r, binary.LittleEndian, &run); err != nil {
			return nil, nil, nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &setNumber); err != nil {
			return nil, nil, nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &processed); err != nil {
			return nil, nil, nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &fileCount); err != nil {
			return nil, nil, nil, err
		}

		key := domain.TaskKey{Run: run, SetNumber: setNumber}
		set := &domain.FileSet{Run: run, SetNumber: setNumber, Processed: processed == 1}

		for j := uint32(0); j < fileCount; j++ {
			var pathBuf [maxPathLen]byte
			var modTimeMs int64
			if _, err := io.ReadFull(r, pathBuf[:]); err != nil {
				return nil, nil, nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &modTimeMs); err != nil {
				return nil, nil, nil, err
			}

			path := cStringFromFixedBuf(pathBuf[:])
			frameNumber := setNumber + j
			if idx.pattern != nil {
				if _, parsed, ok := idx.pattern.Parse(filepath.Base(path)); ok {
					frameNumber = parsed
				}
			}
			set.InsertFile(path, frameNumber)
			pathMap[path] = key
			modTimeMap[path] = modTimeMs
		}

		fileSetMap[key] = set
	}

	return fileSetMap, pathMap, modTimeMap, nil
}

// cStringFromFixedBuf trims the trailing NUL padding of a fixed-width
// path field.
func cStringFromFixedBuf(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

var _ ports.FileIndex = (*Index)(nil)
