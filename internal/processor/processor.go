// Package processor implements the per-set pipeline: parallel read,
// compress, self-check (inside the codec), atomic-enough write with a
// size check, firstFile copy, and delete-task enqueue.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// Processor orchestrates the read -> compress -> verify -> write ->
// enqueue-delete pipeline for one FileSet, implementing
// scheduler.Processor.
type Processor struct {
	codec        ports.ArchiveCodec
	codecExt     string
	maxThreads   int
	outputDirFor func(domain.FileSet) string
	deleter      ports.Deleter
	logger       ports.Logger
}

// New creates a Processor. codecExt is the archive file extension for
// the configured codec ("lz4" or "snpy"), used to compute the output
// path the same way the set's Complete/OutputPathExt invariants do.
func New(codec ports.ArchiveCodec, codecExt string, maxThreads int, outputDirFor func(domain.FileSet) string, deleter ports.Deleter, logger ports.Logger) *Processor {
	if maxThreads < 1 {
		maxThreads = 1
	}
	return &Processor{
		codec:        codec,
		codecExt:     codecExt,
		maxThreads:   maxThreads,
		outputDirFor: outputDirFor,
		deleter:      deleter,
		logger:       logger,
	}
}

type readResult struct {
	file ports.CodecFile
	ok   bool
}

// Process implements scheduler.Processor.
func (p *Processor) Process(ctx context.Context, set domain.FileSet) error {
	outputDir := p.outputDirFor(set)
	outputPath := set.OutputPathExt(outputDir, p.codecExt)
	if outputPath == "" {
		return fmt.Errorf("%w: set %s has no firstFile", domain.ErrInvalidConfig, set.Key())
	}

	// Step 1: already processed, nothing to do.
	if _, err := os.Stat(outputPath); err == nil {
		return nil
	}

	files := set.Files()

	// Step 2-3: parallel read across maxThreads workers, preserving
	// each file's slot by index so no separate sort step is needed.
	results := make([]readResult, len(files))
	p.readAll(files, results)

	codecFiles := make([]ports.CodecFile, 0, len(files))
	for i, r := range results {
		if !r.ok {
			return fmt.Errorf("%w: reading %s", domain.ErrReadFailure, files[i])
		}
		codecFiles = append(codecFiles, r.file)
	}
	if len(codecFiles) != len(files) {
		return fmt.Errorf("%w: expected %d files, read %d", domain.ErrReadFailure, len(files), len(codecFiles))
	}

	// Step 4-6: metadata + concatenation + compression + self-check are
	// all performed inside the codec (domain.BuildMetadata, then
	// selfCheck in internal/codec).
	archive, err := p.codec.Compress(codecFiles)
	if err != nil {
		return err
	}

	// Step 7: write and size-check the written file.
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating output dir: %v", domain.ErrWriteFailure, err)
	}
	if err := os.WriteFile(outputPath, archive, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailure, err)
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() != int64(len(archive)) {
		return fmt.Errorf("%w: written size mismatch for %s", domain.ErrWriteFailure, outputPath)
	}

	// Step 8: copy firstFile into the output directory; failures here
	// are logged but non-fatal.
	if set.FirstFile != "" {
		if err := copyFile(set.FirstFile, filepath.Join(outputDir, filepath.Base(set.FirstFile))); err != nil {
			p.logger.Warn("copying first file failed", ports.String("path", set.FirstFile), ports.Err(err))
		}
	}

	// Step 9: enqueue deletion of every set path except firstFile.
	if p.deleter != nil {
		p.deleter.Enqueue(ports.DeleteTask{Paths: files, Preserve: set.FirstFile})
	}

	return nil
}

func (p *Processor) readAll(files []string, results []readResult) {
	numWorkers := p.maxThreads
	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	if numWorkers < 1 {
		return
	}

	indices := make(chan int, len(files))
	for i := range files {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = readOne(files[i])
			}
		}()
	}
	wg.Wait()
}

func readOne(path string) readResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return readResult{ok: false}
	}
	base := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return readResult{
		file: ports.CodecFile{Name: name, Ext: ext, Bytes: data},
		ok:   true,
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	return os.WriteFile(dst, data, 0o644)
}

var _ interface {
	Process(ctx context.Context, set domain.FileSet) error
} = (*Processor)(nil)
