package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/lattice-sci/frameark/internal/adapters/log"
	"github.com/lattice-sci/frameark/internal/cliconfig"
	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/pkg/frameark"
	"github.com/lattice-sci/frameark/plugins/archivalcleanup"
	"github.com/lattice-sci/frameark/plugins/configwatcher"
	"github.com/lattice-sci/frameark/plugins/resourcegating"
)

const helpBanner = `
 █████   ███   █████   █████████   █████        █████████  █████   █████ █████ ███████████
░░███   ░███  ░░███   ███░░░░░███ ░░███        ███░░░░░███░░███   ░░███ ░░███ ░░███░░░░░███
 ░███   ░███   ░███  ░███    ░███  ░███       ░███    ░░░  ░███    ░███  ░███  ░███    ░███
 ░███   ░███   ░███  ░███████████  ░███       ░░█████████  ░███████████  ░███  ░██████████
 ░░███  █████  ███   ░███░░░░░███  ░███        ░░░░░░░░███ ░███░░░░░███  ░███  ░███░░░░░░
  ░░░█████░█████░    ░███    ░███  ░███      █ ███    ░███ ░███    ░███  ░███  ░███
    ░░███ ░░███      █████   █████ ███████████░░█████████  █████   █████ █████ █████
     ░░░   ░░░      ░░░░░   ░░░░░ ░░░░░░░░░░░  ░░░░░░░░░░░  ░░░░░   ░░░░░ ░░░░░ ░░░░░
`

const helpDescription = `
Watch a directory for incoming TIFF frames, group them into sets, and
archive each complete set to a single compressed file.

Highlights:
  - Groups frames by run and set, archiving once a set is complete.
  - Preserves the first frame of every set alongside its archive.
  - Safe deletion of archived sources, gated on archive-size verification.
  - Configure via interactive prompt (no flags given), file, env, or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  frameark --watch-dir Z: --output-dir Z:\archive --prefix test
  frameark --config $HOME/.frameark/config.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// promptDefaults reads four interactive lines: watch directory, output
// directory, filename prefix, and set size. It runs when no config file
// was loaded and none of those four values came from a flag or a
// FRAMEARK_* env var, or whenever --interactive is set.
func promptDefaults(cfg *cliconfig.Config) {
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

	cfg.WatchDir = ask("Watch directory", cfg.WatchDir)
	cfg.OutputDir = ask("Output directory", cfg.OutputDir)
	cfg.Prefix = ask("Filename prefix", cfg.Prefix)
	if setSize := ask("Set size", strconv.Itoa(cfg.SetSize)); setSize != "" {
		if n, err := strconv.Atoi(setSize); err == nil && n > 0 {
			cfg.SetSize = n
		}
	}
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var interactive bool

	log := logAdapter.NewZerolog()

	root := &cobra.Command{
		Use:     "frameark",
		Short:   "Archive complete sets of TIFF frames as they land in a watch directory",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			fileApplied := false
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				fileApplied = true
			}
			envApplied := os.Getenv("FRAMEARK_WATCH_DIR") != "" || os.Getenv("FRAMEARK_OUTPUT_DIR") != "" ||
				os.Getenv("FRAMEARK_PREFIX") != "" || os.Getenv("FRAMEARK_SET_SIZE") != ""
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			promptedFlags := changed["watch-dir"] || changed["output-dir"] || changed["prefix"] || changed["set-size"]
			if interactive || (!fileApplied && !envApplied && !promptedFlags) {
				promptDefaults(&cfg)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log.Info("configuration", ports.Any("config", cfg))

			libCfg := frameark.Config{
				WatchDir:     cfg.WatchDir,
				OutputDir:    cfg.OutputDir,
				Prefix:       cfg.Prefix,
				SetSize:      cfg.SetSize,
				MaxProcesses: cfg.MaxProcesses,
				MaxThreads:   cfg.MaxThreads,
				ScanInterval: cfg.ScanInterval,
				Codec:        domain.Codec(cfg.Codec),
			}

			opts := []frameark.Option{
				frameark.WithLogger(log),
				frameark.WithPlugin(resourcegating.New(resourcegating.DefaultConfig())),
				frameark.WithPlugin(archivalcleanup.New(archivalcleanup.DefaultConfig())),
			}
			if cfg.ConfigWatch && cfgFile != "" {
				watchCfg := configwatcher.DefaultConfig()
				watchCfg.Path = cfgFile
				opts = append(opts, frameark.WithPlugin(configwatcher.New(watchCfg)))
			}

			m, err := frameark.New(libCfg, opts...)
			if err != nil {
				return fmt.Errorf("create monitor: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := m.Start(ctx); err != nil {
				return fmt.Errorf("start monitor: %w", err)
			}

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if s := m.Status(); s == frameark.StateStopped || s == frameark.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				log.Info("received signal, stopping...")
			case <-doneCh:
				if m.Status() == frameark.StateCrashed {
					log.Error("monitor crashed")
				}
			}

			if err := m.Stop(); err != nil {
				return fmt.Errorf("stop monitor: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.frameark/config.toml)")
	root.Flags().BoolVar(&interactive, "interactive", false, "prompt for watch-dir/output-dir/prefix/set-size even if other config is present")

	root.Flags().StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "directory to watch for incoming frames")
	root.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory to write archives and representative frames to")
	root.Flags().StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "frame filename prefix: <prefix>_<RR>_<NNNNN>.tif")
	root.Flags().IntVar(&cfg.SetSize, "set-size", cfg.SetSize, "number of frames per set")
	root.Flags().IntVar(&cfg.MaxProcesses, "max-processes", cfg.MaxProcesses, "maximum sets compressed concurrently")
	root.Flags().IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "parallel file-read fan-out per set")
	root.Flags().DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "incremental directory scan period")
	root.Flags().StringVar(&cfg.Codec, "codec", cfg.Codec, "archive codec: lz4 or snappy")
	root.Flags().BoolVar(&cfg.ConfigWatch, "config-watch", cfg.ConfigWatch, "hot-reload max-processes/scan-interval from the config file")

	if err := root.Execute(); err != nil {
		log.Error("frameark", ports.Err(err))
		os.Exit(1)
	}
}
