package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	log "github.com/lattice-sci/frameark/internal/adapters/log"
	"github.com/lattice-sci/frameark/internal/domain"
)

// fakeIndex is a minimal in-memory ports.FileIndex double, sufficient
// for exercising the scheduler's dispatch/revert logic without the real
// persistent implementation.
type fakeIndex struct {
	mu   sync.Mutex
	sets map[domain.TaskKey]*domain.FileSet
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{sets: make(map[domain.TaskKey]*domain.FileSet)}
}

func (f *fakeIndex) put(run uint16, setNumber uint32, files int, complete bool) domain.TaskKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.TaskKey{Run: run, SetNumber: setNumber}
	set := &domain.FileSet{Run: run, SetNumber: setNumber}
	n := files
	for i := 0; i < n; i++ {
		set.InsertFile(domain.FrameName("test", run, setNumber+uint32(i)), setNumber+uint32(i))
	}
	f.sets[key] = set
	return key
}

func (f *fakeIndex) AddFile(path string, run uint16, frameNumber uint32, modTimeMs int64) {}
func (f *fakeIndex) HasFileChanged(path string, modTimeMs int64) bool                     { return true }

func (f *fakeIndex) MarkFileSetProcessed(key domain.TaskKey, processed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sets[key]; ok {
		s.Processed = processed
	}
}

func (f *fakeIndex) GetFileSet(key domain.TaskKey) (domain.FileSet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	if !ok {
		return domain.FileSet{}, false
	}
	return s.Clone(), true
}

func (f *fakeIndex) GetAllFileSets(includeProcessed bool) []domain.FileSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FileSet
	for _, s := range f.sets {
		if !includeProcessed && s.Processed {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

func (f *fakeIndex) Cleanup(exists func(path string) bool) []domain.TaskKey { return nil }
func (f *fakeIndex) Load() error                                           { return nil }
func (f *fakeIndex) Save() error                                           { return nil }
func (f *fakeIndex) Reconcile(outputDir, codecExt string) []domain.TaskKey { return nil }

func (f *fakeIndex) isProcessed(key domain.TaskKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[key]
	return ok && s.Processed
}

// fakeProcessor reports success or failure per TaskKey, configurable by
// the test, and counts how many times each key was processed.
type fakeProcessor struct {
	mu      sync.Mutex
	fail    map[domain.TaskKey]bool
	calls   map[domain.TaskKey]int
	delay   time.Duration
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{fail: make(map[domain.TaskKey]bool), calls: make(map[domain.TaskKey]int)}
}

func (p *fakeProcessor) Process(ctx context.Context, set domain.FileSet) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	key := set.Key()
	p.mu.Lock()
	p.calls[key]++
	fail := p.fail[key]
	p.mu.Unlock()
	if fail {
		return errors.New("injected failure")
	}
	return nil
}

func (p *fakeProcessor) callCount(key domain.TaskKey) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func constOutputDir(dir string) func(domain.FileSet) string {
	return func(domain.FileSet) string { return dir }
}

func runSchedulerUntilDone(t *testing.T, s *Scheduler, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-time.After(timeout):
	case <-done:
		cancel()
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestSchedulerDispatchesAndMarksProcessed(t *testing.T) {
	idx := newFakeIndex()
	key := idx.put(1, 1, 2, true)
	proc := newFakeProcessor()
	outputDir := t.TempDir()

	s := New(idx, proc, constOutputDir(outputDir), "lz4", 2, 1, log.NewNoopLogger(), nil)
	s.Enqueue(key)
	s.NotifyInitialScanDone()

	runSchedulerUntilDone(t, s, 2*time.Second)

	if proc.callCount(key) != 1 {
		t.Errorf("Process called %d times, want 1", proc.callCount(key))
	}
	if !idx.isProcessed(key) {
		t.Errorf("set not marked processed after successful Process")
	}
}

func TestSchedulerRevertsProcessedOnFailure(t *testing.T) {
	idx := newFakeIndex()
	key := idx.put(1, 1, 2, true)
	proc := newFakeProcessor()
	proc.fail[key] = true
	outputDir := t.TempDir()

	s := New(idx, proc, constOutputDir(outputDir), "lz4", 2, 1, log.NewNoopLogger(), nil)
	s.Enqueue(key)
	s.NotifyInitialScanDone()

	runSchedulerUntilDone(t, s, 2*time.Second)

	if idx.isProcessed(key) {
		t.Errorf("set still marked processed after Process reported failure")
	}
}

func TestSchedulerSkipsDuplicateEnqueue(t *testing.T) {
	idx := newFakeIndex()
	key := idx.put(1, 1, 2, true)

	s := New(idx, newFakeProcessor(), constOutputDir(t.TempDir()), "lz4", 2, 1, log.NewNoopLogger(), nil)
	s.Enqueue(key)
	s.Enqueue(key)

	s.mu.Lock()
	qlen := len(s.queue)
	s.mu.Unlock()
	if qlen != 1 {
		t.Errorf("queue length = %d after duplicate Enqueue, want 1", qlen)
	}
}

func TestSchedulerSkipsWhenArchiveAlreadyExists(t *testing.T) {
	idx := newFakeIndex()
	key := idx.put(1, 1, 2, true)
	outputDir := t.TempDir()

	set, _ := idx.GetFileSet(key)
	archivePath := set.OutputPathExt(outputDir, "lz4")
	if err := os.WriteFile(archivePath, []byte("already archived"), 0o600); err != nil {
		t.Fatalf("seeding archive: %v", err)
	}

	proc := newFakeProcessor()
	s := New(idx, proc, constOutputDir(outputDir), "lz4", 2, 1, log.NewNoopLogger(), nil)
	s.Enqueue(key)
	s.NotifyInitialScanDone()

	runSchedulerUntilDone(t, s, 2*time.Second)

	if proc.callCount(key) != 0 {
		t.Errorf("Process called %d times for a set whose archive already exists, want 0", proc.callCount(key))
	}
	if !idx.isProcessed(key) {
		t.Errorf("pre-existing archive's set not marked processed")
	}
}

func TestSchedulerGateBlocksDispatch(t *testing.T) {
	idx := newFakeIndex()
	key := idx.put(1, 1, 2, true)
	proc := newFakeProcessor()

	var gateOpen atomicBool
	gate := func() bool { return gateOpen.load() }

	s := New(idx, proc, constOutputDir(t.TempDir()), "lz4", 2, 1, log.NewNoopLogger(), gate)
	s.Enqueue(key)
	s.NotifyInitialScanDone()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	if proc.callCount(key) != 0 {
		t.Errorf("Process called while gate closed, want 0 calls")
	}

	gateOpen.store(true)
	select {
	case <-done:
		t.Fatal("scheduler exited before work completed")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	<-done
	if proc.callCount(key) != 1 {
		t.Errorf("Process called %d times after gate opened, want 1", proc.callCount(key))
	}
}

type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (a *atomicBool) load() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v
}

func (a *atomicBool) store(v bool) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}
