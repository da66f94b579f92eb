package archivalcleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lattice-sci/frameark/internal/adapters/log"
	"github.com/lattice-sci/frameark/pkg/frameark"
)

func TestPlugin_Name(t *testing.T) {
	p := New(DefaultConfig())
	if p.Name() != "archivalcleanup" {
		t.Errorf("Name() = %v, want archivalcleanup", p.Name())
	}
}

func writeSizedFile(t *testing.T, path string, size int, modTime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestCleanupOnce_RemovesOldestArchivesFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writeSizedFile(t, filepath.Join(dir, "test_00_00001.lz4"), 400, base)
	writeSizedFile(t, filepath.Join(dir, "test_00_00101.lz4"), 400, base.Add(time.Minute))
	writeSizedFile(t, filepath.Join(dir, "test_00_00201.lz4"), 400, base.Add(2*time.Minute))
	writeSizedFile(t, filepath.Join(dir, "test_00_00001.tif"), 400, base)

	p := New(Config{HighWatermark: 1000, LowWatermark: 500, RunImmediately: false})
	p.outputDir = dir
	p.logger = log.NewNoopLogger()

	p.cleanupOnce(context.Background())

	if _, err := os.Stat(filepath.Join(dir, "test_00_00001.lz4")); !os.IsNotExist(err) {
		t.Error("oldest archive should have been removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "test_00_00201.lz4")); err != nil {
		t.Error("newest archive should survive")
	}
	if _, err := os.Stat(filepath.Join(dir, "test_00_00001.tif")); err != nil {
		t.Error("representative frame copy must never be deleted")
	}
}

func TestCleanupOnce_NoopBelowHighWatermark(t *testing.T) {
	dir := t.TempDir()
	writeSizedFile(t, filepath.Join(dir, "test_00_00001.lz4"), 100, time.Now())

	p := New(Config{HighWatermark: 1 << 20, LowWatermark: 1 << 19, RunImmediately: false})
	p.outputDir = dir
	p.logger = log.NewNoopLogger()

	p.cleanupOnce(context.Background())

	if _, err := os.Stat(filepath.Join(dir, "test_00_00001.lz4")); err != nil {
		t.Error("archive should survive when under the high watermark")
	}
}

func TestPlugin_DisabledWhenOutputDirEmpty(t *testing.T) {
	p := New(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Initialize(ctx, frameark.PluginConfig{Logger: log.NewNoopLogger()}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

var _ frameark.Plugin = (*Plugin)(nil)
