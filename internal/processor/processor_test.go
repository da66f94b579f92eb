package processor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	log "github.com/lattice-sci/frameark/internal/adapters/log"
	"github.com/lattice-sci/frameark/internal/codec"
	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

type fakeDeleter struct {
	mu    sync.Mutex
	tasks []ports.DeleteTask
}

func (f *fakeDeleter) Enqueue(task ports.DeleteTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}
func (f *fakeDeleter) Start(ctx context.Context) {}
func (f *fakeDeleter) Stop()                     {}

func (f *fakeDeleter) enqueued() []ports.DeleteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.DeleteTask(nil), f.tasks...)
}

func buildFrameSet(t *testing.T, dir string, run uint16, setNumber uint32, n int) domain.FileSet {
	t.Helper()
	set := domain.FileSet{Run: run, SetNumber: setNumber}
	for i := 0; i < n; i++ {
		frameNumber := setNumber + uint32(i)
		name := domain.FrameName("test", run, frameNumber)
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte{byte(i), byte(i + 1), byte(i + 2)}, 0o600); err != nil {
			t.Fatalf("writing frame: %v", err)
		}
		set.InsertFile(path, frameNumber)
	}
	return set
}

func TestProcessHappyPath(t *testing.T) {
	watchDir := t.TempDir()
	outputDir := t.TempDir()

	set := buildFrameSet(t, watchDir, 1, 1, 3)
	del := &fakeDeleter{}
	p := New(codec.NewLZ4Codec(), "lz4", 4, func(domain.FileSet) string { return outputDir }, del, log.NewNoopLogger())

	if err := p.Process(context.Background(), set); err != nil {
		t.Fatalf("Process: %v", err)
	}

	archivePath := set.OutputPathExt(outputDir, "lz4")
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("archive not written: %v", err)
	}

	firstCopy := filepath.Join(outputDir, filepath.Base(set.FirstFile))
	if _, err := os.Stat(firstCopy); err != nil {
		t.Fatalf("firstFile copy not written: %v", err)
	}

	tasks := del.enqueued()
	if len(tasks) != 1 {
		t.Fatalf("deleter got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Preserve != set.FirstFile {
		t.Errorf("delete task Preserve = %q, want %q", tasks[0].Preserve, set.FirstFile)
	}
	if len(tasks[0].Paths) != 3 {
		t.Errorf("delete task Paths = %v, want all 3 set files", tasks[0].Paths)
	}
}

func TestProcessAlreadyArchivedIsNoOp(t *testing.T) {
	watchDir := t.TempDir()
	outputDir := t.TempDir()

	set := buildFrameSet(t, watchDir, 1, 1, 2)
	archivePath := set.OutputPathExt(outputDir, "lz4")
	if err := os.WriteFile(archivePath, []byte("already there"), 0o600); err != nil {
		t.Fatalf("seeding archive: %v", err)
	}

	del := &fakeDeleter{}
	p := New(codec.NewLZ4Codec(), "lz4", 4, func(domain.FileSet) string { return outputDir }, del, log.NewNoopLogger())

	if err := p.Process(context.Background(), set); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(del.enqueued()) != 0 {
		t.Errorf("deleter got tasks for an already-archived set, want none")
	}

	data, err := os.ReadFile(archivePath)
	if err != nil || string(data) != "already there" {
		t.Errorf("pre-existing archive was overwritten")
	}
}

func TestProcessReadFailureLeavesSourcesAndNoArchive(t *testing.T) {
	watchDir := t.TempDir()
	outputDir := t.TempDir()

	set := buildFrameSet(t, watchDir, 1, 1, 2)
	// Remove one source file mid-flight to force a read failure.
	if err := os.Remove(set.Files()[0]); err != nil {
		t.Fatalf("removing file: %v", err)
	}

	del := &fakeDeleter{}
	p := New(codec.NewLZ4Codec(), "lz4", 4, func(domain.FileSet) string { return outputDir }, del, log.NewNoopLogger())

	err := p.Process(context.Background(), set)
	if err == nil {
		t.Fatalf("Process succeeded despite a missing source file")
	}

	archivePath := set.OutputPathExt(outputDir, "lz4")
	if _, statErr := os.Stat(archivePath); statErr == nil {
		t.Errorf("archive written despite read failure")
	}
	if len(del.enqueued()) != 0 {
		t.Errorf("deleter got tasks despite read failure")
	}
}
