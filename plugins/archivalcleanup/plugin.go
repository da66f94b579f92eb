// Package archivalcleanup provides automatic archive retention for
// frameark's output directory. When enabled, it periodically removes
// the oldest compressed archives to keep total archive size under a
// configured watermark, leaving representative .tif frame copies
// untouched.
package archivalcleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/pkg/frameark"
)

// Plugin implements archive output retention. It periodically checks
// the output directory's total archive size and removes the oldest
// archives when it exceeds the high watermark.
type Plugin struct {
	mu sync.RWMutex

	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	runImmediately bool

	outputDir string
	logger    ports.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Config holds configuration options for the archival cleanup plugin.
type Config struct {
	// CheckInterval is how often to check the output directory's size.
	// Default: 1 hour.
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 2 GiB.
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: 1.5 GiB.
	LowWatermark int64

	// RunImmediately, if true, runs a cleanup check on startup.
	// Default: true.
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  time.Hour,
		HighWatermark:  2 << 30,
		LowWatermark:   3 << 29,
		RunImmediately: true,
	}
}

// New creates a new archival cleanup plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 2 << 30
	}
	if cfg.LowWatermark <= 0 {
		cfg.LowWatermark = 3 << 29
	}
	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
	}
}

// WithArchivalCleanup returns a frameark.Option registering an
// archival cleanup plugin built from cfg.
func WithArchivalCleanup(cfg Config) frameark.Option {
	return frameark.WithPlugin(New(cfg))
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "archivalcleanup"
}

// Initialize sets up the plugin and starts the cleanup loop.
func (p *Plugin) Initialize(ctx context.Context, cfg frameark.PluginConfig) error {
	p.mu.Lock()
	p.outputDir = cfg.OutputDir
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.outputDir == "" {
		if p.logger != nil {
			p.logger.Warn("archival cleanup disabled: no output directory configured")
		}
		return nil
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if p.logger != nil {
		p.logger.Info("archival cleanup plugin initialized", ports.String("dir", p.outputDir))
	}

	p.wg.Add(1)
	go p.cleanupLoop(cleanupCtx)

	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.cleanupOnce(ctx)
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupOnce(ctx)
		}
	}
}

// archive describes one candidate for deletion: any file in the output
// directory that is not a representative .tif frame copy.
type archive struct {
	path    string
	size    int64
	modTime time.Time
}

func (p *Plugin) cleanupOnce(ctx context.Context) {
	p.mu.RLock()
	outputDir := p.outputDir
	p.mu.RUnlock()

	archives, total, err := listArchives(outputDir)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("archival cleanup: listing output directory failed", ports.Err(err))
		}
		return
	}

	if total <= p.highWatermark {
		return
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].modTime.Before(archives[j].modTime) })

	var removed int64
	for _, a := range archives {
		if ctx.Err() != nil {
			return
		}
		if total <= p.lowWatermark {
			break
		}
		if err := os.Remove(a.path); err != nil {
			if p.logger != nil {
				p.logger.Warn("archival cleanup: remove failed", ports.String("path", a.path), ports.Err(err))
			}
			continue
		}
		total -= a.size
		removed += a.size
	}

	if removed > 0 && p.logger != nil {
		p.logger.Info("archival cleanup completed", ports.String("freed", formatBytes(removed)))
	}
}

// listArchives walks dir non-recursively and returns every regular file
// that is not a representative frame copy (.tif), along with the total
// size of the directory's contents (including .tif copies, since they
// count toward the watermark even though they are never deleted).
func listArchives(dir string) ([]archive, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}

	var archives []archive
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, 0, err
		}
		total += info.Size()
		if filepath.Ext(e.Name()) == ".tif" {
			continue
		}
		archives = append(archives, archive{
			path:    filepath.Join(dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return archives, total, nil
}

func formatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

var _ frameark.Plugin = (*Plugin)(nil)
