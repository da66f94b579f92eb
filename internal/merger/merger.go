// Package merger implements the archive reader's two offline modes:
// plain extraction, and phase-summation merge with byte-preserving
// header reuse.
package merger

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/internal/tiff"
)

// Extract writes every archive entry back to disk under its original
// filename, for .tif/.tiff entries only.
func Extract(files []ports.CodecFile, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		ext := f.Ext
		if ext != "tif" && ext != "tiff" {
			continue
		}
		name := f.Name + "." + ext
		if err := os.WriteFile(filepath.Join(outputDir, name), f.Bytes, 0o644); err != nil {
			return fmt.Errorf("merger: writing %s: %w", name, err)
		}
	}
	return nil
}

// Options configures a Merge run.
type Options struct {
	// Prefix and Run identify the frame filename grammar, e.g.
	// "<Prefix>_<Run>_<NNNNN>.tif".
	Prefix string
	Run    uint16

	// StartImage, EndImage bound the frame range being merged
	// (inclusive), in frame-number space.
	StartImage, EndImage uint32

	// Phases is the summation window P: inc_set = round((end-start+1)/P)
	// output groups are produced, each the sum of P consecutive frames.
	Phases uint32

	// OutputDivisor scales the input frame number when computing the
	// output frame number; kept as a configuration input rather than a
	// hard-coded constant.
	OutputDivisor uint32

	OutputDir string
}

// Merge partitions [StartImage, EndImage] into inc_set groups of
// Phases consecutive frames, sums
// each group over float, applies the sentinel substitution, and
// writes each output using the exact byte image of its first
// contributing frame with only the strip payload replaced.
func Merge(files []ports.CodecFile, opts Options) error {
	if opts.Phases == 0 {
		return fmt.Errorf("merger: Phases must be > 0")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}

	byName := make(map[string]ports.CodecFile, len(files))
	for _, f := range files {
		byName[f.Name+"."+f.Ext] = f
	}

	increment := opts.EndImage - opts.StartImage + 1
	incSet := uint32(math.Round(float64(increment) / float64(opts.Phases)))

	sums := make([][]float32, incSet)
	var width, height uint32
	sizeInitialized := false
	firstContributor := make([]ports.CodecFile, incSet)
	haveFirst := make([]bool, incSet)

	for t := uint32(0); t < opts.Phases; t++ {
		for i := uint32(0); i < incSet; i++ {
			idx := opts.StartImage + i*opts.Phases + t
			name := domain.FrameName(opts.Prefix, opts.Run, idx)
			f, ok := byName[name]
			if !ok {
				continue
			}

			img, w, h, _, err := tiff.ReadFloat(f.Bytes)
			if err != nil {
				continue
			}

			if !sizeInitialized {
				width, height = w, h
				sizeInitialized = true
				for j := range sums {
					sums[j] = make([]float32, width*height)
				}
			}
			if w != width || h != height {
				continue
			}
			if !haveFirst[i] {
				firstContributor[i] = f
				haveFirst[i] = true
			}

			for p := range img {
				sums[i][p] += img[p]
			}
		}
	}

	threshold := -float32(opts.Phases)
	for i := uint32(0); i < incSet; i++ {
		if !haveFirst[i] {
			continue
		}
		applySentinels(sums[i], threshold)

		outputIdx := opts.StartImage/opts.OutputDivisor + i + 1
		outputName := domain.FrameName(opts.Prefix, opts.Run, outputIdx)
		outputPath := filepath.Join(opts.OutputDir, outputName)

		if err := tiff.WriteWithOriginalHeader(outputPath, sums[i], width, height, firstContributor[i].Bytes); err != nil {
			return fmt.Errorf("merger: writing %s: %w", outputName, err)
		}
	}

	return nil
}

// applySentinels collapses a fully-saturated/masked sum (-P) to -1.0
// and an over-saturated sum (< -P) to -2.0.
func applySentinels(img []float32, threshold float32) {
	for i, v := range img {
		switch {
		case v == threshold:
			img[i] = -1.0
		case v < threshold:
			img[i] = -2.0
		}
	}
}
