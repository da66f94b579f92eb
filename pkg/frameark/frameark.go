package frameark

import (
	"context"
	"fmt"
	"time"

	"github.com/lattice-sci/frameark/internal/app"
	"github.com/lattice-sci/frameark/internal/codec"
	"github.com/lattice-sci/frameark/internal/deleter"
	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/index"
	"github.com/lattice-sci/frameark/internal/ports"
	"github.com/lattice-sci/frameark/internal/processor"
	"github.com/lattice-sci/frameark/internal/scanner"
	"github.com/lattice-sci/frameark/internal/scheduler"
)

// Monitor watches a directory for TIFF frames, groups them into sets,
// and archives each complete set. It is the embeddable core of
// frameark, wiring together the index, scanner, scheduler, processor,
// and safe deleter described in the package doc.
type Monitor struct {
	cfg Config

	lifecycle *app.Lifecycle
	logger    ports.Logger
	handler   EventHandler
	plugins   []Plugin

	idx       ports.FileIndex
	scan      *scanner.Scanner
	del       *deleter.Deleter
	delCancel context.CancelFunc
	proc      *processor.Processor
	sched     *scheduler.Scheduler
	codecExt  string
}

// New constructs a Monitor from cfg and opts. It does not start any
// goroutines; call Start to begin watching.
func New(cfg Config, opts ...Option) (*Monitor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c, err := codec.For(cfg.Codec)
	if err != nil {
		return nil, err
	}

	pattern := domain.CompileFramePattern(cfg.Prefix)
	idx := index.New(cfg.IndexPath, cfg.SetSize, pattern, o.logger)

	if err := idx.Load(); err != nil {
		o.logger.Warn("loading persistent index failed, starting empty", ports.Err(err))
	}
	if reopened := idx.Reconcile(cfg.OutputDir, cfg.codecExt()); len(reopened) > 0 {
		o.logger.Warn("reopened sets marked processed with no archive on disk", ports.Int("count", len(reopened)))
	}

	m := &Monitor{
		cfg:      cfg,
		logger:   o.logger,
		handler:  o.handler,
		plugins:  o.plugins,
		idx:      idx,
		codecExt: cfg.codecExt(),
	}

	m.lifecycle = app.NewLifecycle(o.logger, stateChangeAdapter{m.handler})

	outputDirFor := func(domain.FileSet) string { return cfg.OutputDir }

	del := deleter.New(o.logger)
	m.del = del

	proc := processor.New(c, m.codecExt, cfg.MaxThreads, outputDirFor, del, o.logger)
	m.proc = proc

	gate := m.buildGate()

	sched := scheduler.New(idx, proc, outputDirFor, m.codecExt, cfg.SetSize, cfg.MaxProcesses, o.logger, gate)
	sched.OnResult(m.onSchedulerResult)
	m.sched = sched

	m.scan = scanner.New(cfg.WatchDir, pattern, cfg.SetSize, idx, sched, o.logger, cfg.ScanInterval)

	return m, nil
}

// buildGate returns a gate function consulted by the scheduler before
// every dispatch. It returns true (no backpressure) unless at least one
// registered plugin implements Gater, in which case every such plugin
// must agree the dispatch may proceed.
func (m *Monitor) buildGate() func() bool {
	var gaters []Gater
	for _, p := range m.plugins {
		if g, ok := p.(Gater); ok {
			gaters = append(gaters, g)
		}
	}
	if len(gaters) == 0 {
		return nil
	}
	return func() bool {
		for _, g := range gaters {
			if !g.Gate() {
				return false
			}
		}
		return true
	}
}

func (m *Monitor) onSchedulerResult(key domain.TaskKey, set domain.FileSet, err error) {
	if err != nil {
		m.handler.OnSetError(key, err)
		return
	}
	m.handler.OnSetArchived(key, set.OutputPathExt(m.cfg.OutputDir, m.codecExt))
}

// Start transitions the Monitor to Running: it initializes every
// registered plugin in registration order, then starts the deleter,
// scanner, and scheduler loops on their own goroutines.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := m.lifecycle.TransitionTo(app.StateStarting, "start requested"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		WatchDir:  m.cfg.WatchDir,
		OutputDir: m.cfg.OutputDir,
		Prefix:    m.cfg.Prefix,
		Logger:    m.logger,
		Reload:    m,
	}
	for i, p := range m.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			cancel()
			m.shutdownPlugins(ctx, i)
			m.lifecycle.TransitionTo(app.StateCrashed, fmt.Sprintf("plugin %s failed to initialize: %v", p.Name(), err))
			return fmt.Errorf("initializing plugin %s: %w", p.Name(), err)
		}
	}

	delCtx, delCancel := context.WithCancel(context.Background())
	m.delCancel = delCancel

	go m.del.Start(delCtx)

	m.lifecycle.AddWorker()
	go func() {
		defer m.lifecycle.WorkerDone()
		m.scan.Run(func(err error) {
			m.logger.Error("scanner fatal error, canceling", ports.Err(err))
			cancel()
		})
	}()

	m.lifecycle.AddWorker()
	go func() {
		defer m.lifecycle.WorkerDone()
		m.sched.Run(runCtx)
	}()

	return m.lifecycle.TransitionTo(app.StateRunning, "startup complete")
}

// Stop requests graceful shutdown and waits for all scanner and
// scheduler workers to finish, or for app.ShutdownTimeout to elapse,
// whichever comes first. The deleter is stopped only after that wait
// returns, so an archive a worker finishes writing during shutdown
// still gets its source files queued for deletion and drained rather
// than abandoned. Stop then shuts down every plugin in reverse
// registration order and persists the index to disk.
func (m *Monitor) Stop() error {
	if !m.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := m.lifecycle.TransitionTo(app.StateStopping, "stop requested"); err != nil {
		return err
	}

	m.lifecycle.Cancel()
	m.scan.Stop()

	waitErr := m.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	// The deleter is joined last, after every scheduler worker has
	// drained: a worker that finishes archiving during shutdown still
	// enqueues its source-file deletion, and that enqueue must land on
	// a live queue.
	m.del.Stop()
	m.delCancel()

	m.shutdownPlugins(context.Background(), len(m.plugins))

	if err := m.idx.Save(); err != nil {
		m.logger.Error("saving persistent index failed", ports.Err(err))
	}

	if waitErr != nil {
		m.lifecycle.TransitionTo(app.StateCrashed, "shutdown timed out")
		return waitErr
	}
	return m.lifecycle.TransitionTo(app.StateStopped, "shutdown complete")
}

// shutdownPlugins shuts down the first n registered plugins, in reverse
// order, logging any error without aborting the remaining shutdowns.
func (m *Monitor) shutdownPlugins(ctx context.Context, n int) {
	for i := n - 1; i >= 0; i-- {
		p := m.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Warn("plugin shutdown failed", ports.String("plugin", p.Name()), ports.Err(err))
		}
	}
}

// Status returns the Monitor's current lifecycle state.
func (m *Monitor) Status() State {
	return State(m.lifecycle.State())
}

// SetMaxProcesses changes the scheduler's worker pool capacity while
// running, for plugins/configwatcher-style hot reload.
func (m *Monitor) SetMaxProcesses(n int) {
	m.sched.SetMaxProcesses(n)
}

// SetScanInterval changes the scanner's incremental scan period while
// running, for plugins/configwatcher-style hot reload.
func (m *Monitor) SetScanInterval(d time.Duration) {
	m.scan.SetScanInterval(d)
}

// stateChangeAdapter bridges internal/app.EventEmitter to the public
// EventHandler, translating app.State to State.
type stateChangeAdapter struct {
	handler EventHandler
}

func (a stateChangeAdapter) OnStateChange(previous, current app.State, reason string) {
	a.handler.OnStateChange(State(previous), State(current), reason)
}

var _ app.EventEmitter = stateChangeAdapter{}
