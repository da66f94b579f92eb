// Package resourcegating provides a scheduler backpressure gate for
// frameark, delaying new set dispatches when the process already has a
// large number of goroutines in flight relative to available CPUs.
package resourcegating

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/pkg/frameark"
)

// Plugin implements a goroutine-count CPU-load heuristic as a
// frameark.Gater: when the process's goroutine count climbs past
// GoroutineMultiplier times NumCPU, Gate returns false and the
// scheduler withholds new dispatches until load subsides.
type Plugin struct {
	mu sync.RWMutex

	multiplier int

	logger ports.Logger
	gated  atomic.Bool
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// GoroutineMultiplier is the number of goroutines per CPU above
	// which the gate closes. Default: 10.
	GoroutineMultiplier int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{GoroutineMultiplier: 10}
}

// New creates a new resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.GoroutineMultiplier <= 0 {
		cfg.GoroutineMultiplier = 10
	}
	return &Plugin{multiplier: cfg.GoroutineMultiplier}
}

// WithResourceGating returns a frameark.Option registering a resource
// gating plugin built from cfg.
func WithResourceGating(cfg Config) frameark.Option {
	return frameark.WithPlugin(New(cfg))
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize sets up the plugin with the provided configuration.
func (p *Plugin) Initialize(ctx context.Context, cfg frameark.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = cfg.Logger
	if p.logger != nil {
		p.logger.Info("resource gating plugin initialized")
	}
	return nil
}

// Shutdown releases plugin resources.
func (p *Plugin) Shutdown(ctx context.Context) error {
	return nil
}

// Gate implements frameark.Gater. It returns false when the process's
// goroutine count exceeds GoroutineMultiplier times NumCPU, a rough
// proxy for "the system is busy enough that starting another
// compression worker would make things worse".
func (p *Plugin) Gate() bool {
	p.mu.RLock()
	multiplier := p.multiplier
	logger := p.logger
	p.mu.RUnlock()

	numGoroutines := runtime.NumGoroutine()
	numCPU := runtime.NumCPU()
	overloaded := numGoroutines > numCPU*multiplier

	wasGated := p.gated.Swap(overloaded)
	if overloaded && !wasGated && logger != nil {
		logger.Debug("resource gate: closing, high goroutine count",
			ports.Int("goroutines", numGoroutines), ports.Int("cpus", numCPU))
	} else if !overloaded && wasGated && logger != nil {
		logger.Debug("resource gate: reopening")
	}

	return !overloaded
}

var (
	_ frameark.Plugin = (*Plugin)(nil)
	_ frameark.Gater  = (*Plugin)(nil)
)
