package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/lattice-sci/frameark/internal/adapters/log"
	"github.com/lattice-sci/frameark/internal/cliconfig"
	"github.com/lattice-sci/frameark/internal/codec"
	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/internal/merger"
)

const helpDescription = `
Read frameark archives back out, either extracting their TIFF frames
as-is or merging P-frame phase windows into summed output TIFFs.

Prompts interactively for input/output directories, prefix, run and
image range, and mode when no flags are given, per the original
offline reader/merger tool; accepts flags/env/file config for scripted
use.
`

var exampleUsage = strings.TrimSpace(`
  framereader --input-dir Z:\archive --output-dir Z:\out --prefix test --start-run 1 --end-run 1 --mode extract
  framereader --input-dir Z:\archive --output-dir Z:\merged --prefix test --start-run 1 --end-run 1 \
    --start-image 1 --end-image 100 --mode merge --phases 10
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

type readerOptions struct {
	inputDir   string
	outputDir  string
	prefix     string
	startRun   int
	endRun     int
	startImage int
	endImage   int
	mode       string // "extract" or "merge"
	phases     int
	divisor    int
}

// promptReaderOptions runs the reader/merger's interactive prompt
// sequence: input directory, output directory, prefix, start/end run,
// start/end image, run_type (extract/merge), and merge_frame_num if
// merging.
func promptReaderOptions(o *readerOptions) {
	reader := bufio.NewReader(os.Stdin)
	ask := func(label, def string) string {
		fmt.Printf("%s [%s]: ", label, def)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}
	askInt := func(label string, def int) int {
		v := ask(label, strconv.Itoa(def))
		n, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return n
	}

	o.inputDir = ask("Input directory", o.inputDir)
	o.outputDir = ask("Output directory", o.outputDir)
	o.prefix = ask("Filename prefix", o.prefix)
	o.startRun = askInt("Start run", o.startRun)
	o.endRun = askInt("End run", o.endRun)
	o.startImage = askInt("Start image", o.startImage)
	o.endImage = askInt("End image", o.endImage)

	runType := askInt("Run type (0=extract, 1=merge)", 0)
	if runType == 1 {
		o.mode = "merge"
		o.phases = askInt("Merge frame num (phases)", o.phases)
	} else {
		o.mode = "extract"
	}
}

// findArchives globs inputDir for every archive belonging to run,
// regardless of which codec wrote it.
func findArchives(inputDir, prefix string, run int) ([]string, error) {
	var matches []string
	for _, ext := range []string{"lz4", "snpy"} {
		pattern := filepath.Join(inputDir, fmt.Sprintf("%s_%02d_*.%s", prefix, run, ext))
		m, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m...)
	}
	return matches, nil
}

func loadArchiveFiles(paths []string) ([]ports.CodecFile, error) {
	var all []ports.CodecFile
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		files, err := codec.DetectAndDecompress(raw)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", p, err)
		}
		all = append(all, files...)
	}
	return all, nil
}

func run(o readerOptions, log ports.Logger) error {
	for r := o.startRun; r <= o.endRun; r++ {
		archives, err := findArchives(o.inputDir, o.prefix, r)
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			log.Warn("no archives found for run", ports.Int("run", r))
			continue
		}

		files, err := loadArchiveFiles(archives)
		if err != nil {
			return err
		}
		log.Info("loaded archives", ports.Int("run", r), ports.Int("archives", len(archives)), ports.Int("files", len(files)))

		switch o.mode {
		case "extract":
			if err := merger.Extract(files, o.outputDir); err != nil {
				return fmt.Errorf("extracting run %d: %w", r, err)
			}
		case "merge":
			opts := merger.Options{
				Prefix:        o.prefix,
				Run:           uint16(r),
				StartImage:    uint32(o.startImage),
				EndImage:      uint32(o.endImage),
				Phases:        uint32(o.phases),
				OutputDivisor: uint32(o.divisor),
				OutputDir:     o.outputDir,
			}
			if err := merger.Merge(files, opts); err != nil {
				return fmt.Errorf("merging run %d: %w", r, err)
			}
		default:
			return fmt.Errorf("unknown mode %q, want extract or merge", o.mode)
		}
	}
	return nil
}

func main() {
	log := logAdapter.NewZerolog()

	o := readerOptions{
		mode:    "extract",
		divisor: cliconfig.DefaultConfig().MergeFrameNumDivisor,
	}
	var interactive bool

	root := &cobra.Command{
		Use:     "framereader",
		Short:   "Extract or merge TIFF frames back out of frameark archives",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if interactive || len(changed) == 0 {
				promptReaderOptions(&o)
			}

			if o.inputDir == "" {
				return fmt.Errorf("input-dir is required")
			}
			if o.outputDir == "" {
				return fmt.Errorf("output-dir is required")
			}
			if o.prefix == "" {
				return fmt.Errorf("prefix is required")
			}
			if o.mode != "extract" && o.mode != "merge" {
				return fmt.Errorf("mode must be extract or merge, got %q", o.mode)
			}

			return run(o, log)
		},
	}

	root.Flags().BoolVar(&interactive, "interactive", false, "prompt for every option even if flags were given")
	root.Flags().StringVar(&o.inputDir, "input-dir", o.inputDir, "directory containing archives to read")
	root.Flags().StringVar(&o.outputDir, "output-dir", o.outputDir, "directory to write extracted/merged TIFFs to")
	root.Flags().StringVar(&o.prefix, "prefix", o.prefix, "frame filename prefix: <prefix>_<RR>_<NNNNN>.tif")
	root.Flags().IntVar(&o.startRun, "start-run", o.startRun, "first run number (inclusive)")
	root.Flags().IntVar(&o.endRun, "end-run", o.endRun, "last run number (inclusive)")
	root.Flags().IntVar(&o.startImage, "start-image", o.startImage, "first frame number in range (merge mode)")
	root.Flags().IntVar(&o.endImage, "end-image", o.endImage, "last frame number in range (merge mode)")
	root.Flags().StringVar(&o.mode, "mode", o.mode, "extract or merge")
	root.Flags().IntVar(&o.phases, "phases", o.phases, "phase-summation window P (merge mode)")
	root.Flags().IntVar(&o.divisor, "merge-divisor", o.divisor, "output frame number divisor (merge mode, default 10)")

	if err := root.Execute(); err != nil {
		log.Error("framereader", ports.Err(err))
		os.Exit(1)
	}
}
