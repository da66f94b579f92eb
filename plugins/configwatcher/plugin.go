// Package configwatcher hot-reloads a subset of a running frameark
// Monitor's tunables (worker pool size, scan interval) from a TOML
// config file, without requiring a restart.
package configwatcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/pkg/frameark"
)

// fileConfig is the subset of config.toml this plugin understands.
// Fields absent from the file leave the corresponding tunable
// unchanged.
type fileConfig struct {
	MaxProcesses int    `toml:"max_processes"`
	ScanInterval string `toml:"scan_interval"`
}

// Plugin watches a config file and pushes changed values into a
// Monitor's hot-reloadable tunables via frameark.Reloadable.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	logger ports.Logger
	reload frameark.Reloadable
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config.toml file to watch for changes.
	Path string

	// DebounceDelay is how long to wait after a file change settles
	// before reloading. Default: 100ms.
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults and no Path
// set; callers must set Path before use.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{path: cfg.Path, debounceDelay: cfg.DebounceDelay}
}

// WithConfigWatcher returns a frameark.Option registering a config
// watcher plugin built from cfg.
func WithConfigWatcher(cfg Config) frameark.Option {
	return frameark.WithPlugin(New(cfg))
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize sets up the plugin and starts the config watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg frameark.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.reload = cfg.Reload
	p.mu.Unlock()

	if p.path == "" {
		if p.logger != nil {
			p.logger.Warn("config watcher disabled: no path configured")
		}
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.applyFile()

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	if p.logger != nil {
		p.logger.Info("config watcher plugin initialized", ports.String("path", p.path))
	}
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		if p.logger != nil {
			p.logger.Error("config watcher: failed to create watcher", ports.Err(err))
		}
		return
	}
	defer watcher.Close()

	if err := watcher.Add(p.path); err != nil {
		if p.logger != nil {
			p.logger.Error("config watcher: failed to watch file", ports.Err(err))
		}
		return
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(p.debounceDelay, p.applyFile)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if p.logger != nil {
				p.logger.Error("config watcher: watcher error", ports.Err(err))
			}
		}
	}
}

// applyFile reads the config file and pushes any recognized values into
// the Monitor's hot-reloadable tunables. Parse or read errors are
// logged and otherwise ignored: the previous values remain in effect.
func (p *Plugin) applyFile() {
	p.mu.Lock()
	path := p.path
	reload := p.reload
	logger := p.logger
	p.mu.Unlock()

	data, err := readFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("config watcher: reading file failed", ports.Err(err))
		}
		return
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		if logger != nil {
			logger.Warn("config watcher: parsing file failed", ports.Err(err))
		}
		return
	}

	if reload == nil {
		return
	}
	if fc.MaxProcesses > 0 {
		reload.SetMaxProcesses(fc.MaxProcesses)
	}
	if fc.ScanInterval != "" {
		if d, err := time.ParseDuration(fc.ScanInterval); err == nil {
			reload.SetScanInterval(d)
		} else if logger != nil {
			logger.Warn("config watcher: invalid scan_interval", ports.String("value", fc.ScanInterval))
		}
	}

	if logger != nil {
		logger.Info("config watcher: applied config", ports.String("path", path))
	}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var _ frameark.Plugin = (*Plugin)(nil)
