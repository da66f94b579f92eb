package frameark

import (
	"context"
	"time"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// State mirrors internal/app.State for public consumption, so embedders
// never need to import an internal package to read Monitor.Status.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventHandler receives notifications about archiving operations and
// lifecycle transitions. Implementations must return quickly: they are
// invoked synchronously from the scheduler's worker goroutines and from
// the lifecycle's state-transition path.
type EventHandler interface {
	// OnStateChange is called whenever the Monitor's lifecycle state
	// changes.
	OnStateChange(previous, current State, reason string)

	// OnSetArchived is called after a set is successfully compressed,
	// written, and its non-representative frames enqueued for deletion.
	OnSetArchived(key domain.TaskKey, archivePath string)

	// OnSetError is called when processing a set fails. The set remains
	// unprocessed in the index and will be retried on the next dispatch.
	OnSetError(key domain.TaskKey, err error)
}

// noopEventHandler discards every event; it is the default so callers
// need not implement EventHandler just to embed a Monitor.
type noopEventHandler struct{}

func (noopEventHandler) OnStateChange(previous, current State, reason string) {}
func (noopEventHandler) OnSetArchived(key domain.TaskKey, archivePath string)  {}
func (noopEventHandler) OnSetError(key domain.TaskKey, err error)              {}

// PluginConfig is the subset of a Monitor's configuration exposed to
// plugins during Initialize, so a plugin can act on the same watch/output
// directories and logger as the core without importing internal packages.
type PluginConfig struct {
	WatchDir  string
	OutputDir string
	Prefix    string
	Logger    ports.Logger

	// Reload exposes the Monitor's hot-reloadable tunables to plugins
	// such as plugins/configwatcher, without those plugins needing to
	// hold a *Monitor reference.
	Reload Reloadable
}

// Reloadable is the subset of Monitor that plugins may adjust at
// runtime. A Monitor satisfies this interface directly.
type Reloadable interface {
	SetMaxProcesses(n int)
	SetScanInterval(d time.Duration)
}

// Plugin is an optional component initialized alongside a Monitor and
// shut down in reverse registration order. See plugins/resourcegating,
// plugins/configwatcher, and plugins/archivalcleanup for implementations.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// Gater is an optional interface a Plugin may additionally implement to
// apply scheduler backpressure (see plugins/resourcegating). When any
// registered plugin implements Gater, the scheduler dispatches a set only
// when every Gater-implementing plugin's Gate returns true.
type Gater interface {
	Gate() bool
}

// options holds the accumulated effect of a New call's Option arguments.
type options struct {
	logger  ports.Logger
	handler EventHandler
	plugins []Plugin
}

// Option configures a Monitor at construction time.
type Option func(*options)

// WithLogger overrides the default logger.
func WithLogger(logger ports.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler registers an EventHandler to receive lifecycle and
// archiving notifications.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.handler = handler
	}
}

// WithPlugin registers a Plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

func defaultOptions() options {
	return options{
		logger:  noopLogger{},
		handler: noopEventHandler{},
	}
}

// noopLogger satisfies ports.Logger without importing internal/adapters/log,
// used only as the zero-value default before a real logger is supplied.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
