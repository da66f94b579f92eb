// Package frameark provides an embeddable TIFF-frame archiver for
// scientific detector pipelines.
//
// A detector writes sequentially numbered TIFF frames
// ("<prefix>_<run>_<frameNumber>.tif") into a watch directory. frameark
// watches that directory, groups frames into fixed-size sets, and once
// a set is complete, compresses it into a single archive file while
// preserving one representative frame and deleting the rest. It can be
// used as a standalone CLI application or embedded as a library in
// other Go programs.
//
// # Basic Usage
//
// To embed frameark in your application:
//
//	cfg := frameark.Config{
//	    WatchDir:  "/data/detector/incoming",
//	    OutputDir: "/data/detector/archive",
//	    Prefix:    "test",
//	    SetSize:   100,
//	}
//
//	mon, err := frameark.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := mon.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := mon.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Configuration
//
// Create a [Config] with at minimum WatchDir and OutputDir. All other
// fields have sensible defaults set via [Config.SetDefaults].
//
// # Event Handling
//
// To receive notifications about archiving operations, implement
// [EventHandler] and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	mon, err := frameark.New(cfg, frameark.WithEventHandler(handler))
//
// Events are called synchronously from the scheduler's goroutines.
// Implementations should return quickly to avoid blocking processing.
//
// # Dependency Injection
//
// For testing, inject a custom logger:
//
//	mon, err := frameark.New(cfg, frameark.WithLogger(customLogger))
//
// # Lifecycle States
//
// A Monitor instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed].
// Use [Monitor.Status] to query the current state.
//
// # Plugins
//
// frameark supports optional plugins for extended functionality:
//
//	import "github.com/lattice-sci/frameark/plugins/resourcegating"
//	import "github.com/lattice-sci/frameark/plugins/configwatcher"
//	import "github.com/lattice-sci/frameark/plugins/archivalcleanup"
//
//	mon, err := frameark.New(cfg,
//	    resourcegating.WithResourceGating(resourcegating.DefaultConfig()),
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	    archivalcleanup.WithArchivalCleanup(archivalcleanup.DefaultConfig()),
//	)
package frameark
