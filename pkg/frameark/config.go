package frameark

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/scanner"
)

// Config holds the configuration for a Monitor.
type Config struct {
	// WatchDir is the directory the scanner watches for incoming frame
	// files. Required.
	WatchDir string

	// OutputDir is the directory archives and representative frame
	// copies are written to. Defaults to WatchDir if empty, matching
	// the interactive CLI's shared default.
	OutputDir string

	// Prefix is the configured filename prefix: frames are expected to
	// match "<Prefix>_<RR>_<NNNNN>.tif". Default: "test".
	Prefix string

	// SetSize is the number of consecutive frames that make up one
	// set. Default: 100.
	SetSize int

	// MaxProcesses bounds the scheduler's worker pool: the number of
	// sets compressed concurrently. Default: 1.
	MaxProcesses int

	// MaxThreads bounds the per-set parallel file-read fan-out inside
	// the set processor. Default: 4.
	MaxThreads int

	// ScanInterval is the period between incremental directory scans.
	// Default: scanner.DefaultScanInterval (300ms).
	ScanInterval time.Duration

	// Codec selects the archive codec: domain.CodecLZ4 (default) or
	// domain.CodecSnappy.
	Codec domain.Codec

	// IndexPath overrides the persistent index file location. Defaults
	// to "<WatchDir>/.file_index.bin".
	IndexPath string
}

// DefaultConfig returns a Config with the interactive CLI's defaults:
// watch/output directory "Z:", prefix "test", set size 100.
func DefaultConfig() Config {
	return Config{
		WatchDir:     "Z:",
		OutputDir:    "Z:",
		Prefix:       "test",
		SetSize:      100,
		MaxProcesses: 1,
		MaxThreads:   4,
		ScanInterval: scanner.DefaultScanInterval,
		Codec:        domain.CodecLZ4,
	}
}

// SetDefaults fills in zero-valued fields with their defaults, without
// overriding anything the caller explicitly set.
func (c *Config) SetDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = c.WatchDir
	}
	if c.Prefix == "" {
		c.Prefix = "test"
	}
	if c.SetSize <= 0 {
		c.SetSize = 100
	}
	if c.MaxProcesses <= 0 {
		c.MaxProcesses = 1
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = 4
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = scanner.DefaultScanInterval
	}
	if c.Codec == "" {
		c.Codec = domain.CodecLZ4
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.WatchDir, ".file_index.bin")
	}
}

// Validate checks the configuration for errors. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.WatchDir == "" {
		return fmt.Errorf("%w: watch-dir is required", domain.ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output-dir is required", domain.ErrInvalidConfig)
	}
	if c.SetSize <= 0 {
		return fmt.Errorf("%w: set-size must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxProcesses <= 0 {
		return fmt.Errorf("%w: max-processes must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxThreads <= 0 {
		return fmt.Errorf("%w: max-threads must be positive", domain.ErrInvalidConfig)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("%w: scan-interval must be positive", domain.ErrInvalidConfig)
	}
	switch c.Codec {
	case domain.CodecLZ4, domain.CodecSnappy:
	default:
		return fmt.Errorf("%w: unknown codec %q", domain.ErrInvalidConfig, c.Codec)
	}
	return nil
}

// codecExt returns the archive file extension for the configured
// codec, matching domain.FileSet.OutputPathExt's expectations.
func (c *Config) codecExt() string {
	if c.Codec == domain.CodecSnappy {
		return "snpy"
	}
	return "lz4"
}
