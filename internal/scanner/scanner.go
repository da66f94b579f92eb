// Package scanner implements a directory scanner: an initial parallel
// full scan followed by periodic single-threaded incremental scans,
// feeding the set index and the scheduler's task queue.
package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// DefaultScanInterval is the period between incremental scans.
const DefaultScanInterval = 300 * time.Millisecond

// Enqueuer is the subset of the scheduler's task queue the scanner
// pushes completed, unprocessed TaskKeys onto.
type Enqueuer interface {
	Enqueue(key domain.TaskKey)
	NotifyInitialScanDone()
}

// Scanner owns the watched directory and drives a FileIndex from what
// it observes there.
type Scanner struct {
	watchDir string
	pattern  *domain.FramePattern
	setSize  int

	index    ports.FileIndex
	enqueuer Enqueuer
	logger   ports.Logger

	watcher      *fsnotify.Watcher
	scanInterval atomic.Int64 // nanoseconds, read by Run's ticker loop

	stop chan struct{}
	done chan struct{}
}

// New creates a Scanner over watchDir for files matching pattern,
// grouped into sets of setSize, scanning incrementally every
// scanInterval (DefaultScanInterval if zero or negative).
func New(watchDir string, pattern *domain.FramePattern, setSize int, idx ports.FileIndex, enqueuer Enqueuer, logger ports.Logger, scanInterval time.Duration) *Scanner {
	if scanInterval <= 0 {
		scanInterval = DefaultScanInterval
	}
	s := &Scanner{
		watchDir: watchDir,
		pattern:  pattern,
		setSize:  setSize,
		index:    idx,
		enqueuer: enqueuer,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.scanInterval.Store(int64(scanInterval))
	return s
}

// SetScanInterval changes the incremental scan period while the
// scanner is running, for plugins/configwatcher-style hot reload. The
// new period takes effect the next time the ticker fires.
func (s *Scanner) SetScanInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultScanInterval
	}
	s.scanInterval.Store(int64(d))
}

// Run performs the initial full scan, then loops incremental scans
// every ScanInterval until Stop is called. It is meant to run on its
// own goroutine; a fatal error terminates the loop and is reported via
// onFatal so the caller (the monitor) can stop the process cleanly.
func (s *Scanner) Run(onFatal func(error)) {
	defer close(s.done)

	// fsnotify is optional and never replaces the fixed-interval poll
	// loop: watch events are drained and neither trigger nor hasten a
	// scan, so changes are picked up by the next tick; a watcher failure
	// is ignored.
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(s.watchDir); err == nil {
			s.watcher = watcher
			defer watcher.Close()
		} else {
			watcher.Close()
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if onFatal != nil {
					onFatal(fmtRecover(r))
				}
			}
		}()
		s.performFullScan()
	}()

	s.enqueuer.NotifyInitialScanDone()

	ticker := time.NewTicker(time.Duration(s.scanInterval.Load()))
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.scanOnceSafely(onFatal)
			ticker.Reset(time.Duration(s.scanInterval.Load()))
		case <-s.watchEvents():
			// drain any events; the next ticker fire will pick up changes.
		}
	}
}

func (s *Scanner) scanOnceSafely(onFatal func(error)) {
	defer func() {
		if r := recover(); r != nil {
			if onFatal != nil {
				onFatal(fmtRecover(r))
			}
		}
	}()
	s.performIncrementalScan()
}

func (s *Scanner) watchEvents() <-chan fsnotify.Event {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Events
}

// Stop signals the scan loop to exit and waits for it to do so.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.done
}

// performFullScan collects every regular-file entry, partitions the
// work across NumCPU() workers, then cleans up and enqueues every
// complete unprocessed set.
func (s *Scanner) performFullScan() {
	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		s.logger.Warn("full scan: reading directory failed", ports.Err(err))
		return
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(s.watchDir, e.Name()))
		}
	}

	numWorkers := runtime.NumCPU()
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(paths) && len(paths) > 0 {
		numWorkers = len(paths)
	}

	var wg sync.WaitGroup
	chunk := (len(paths) + numWorkers - 1)
	if numWorkers > 0 {
		chunk /= numWorkers
	}
	if chunk < 1 {
		chunk = 1
	}

	for start := 0; start < len(paths); start += chunk {
		end := start + chunk
		if end > len(paths) {
			end = len(paths)
		}
		wg.Add(1)
		go func(batch []string) {
			defer wg.Done()
			for _, path := range batch {
				s.observe(path)
			}
		}(paths[start:end])
	}
	wg.Wait()

	s.cleanupAndEnqueueAll()
}

// performIncrementalScan does a single-threaded walk, upserting changed
// files and enqueueing any newly-complete set.
func (s *Scanner) performIncrementalScan() {
	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		s.logger.Warn("incremental scan: reading directory failed", ports.Err(err))
		return
	}

	touched := make(map[domain.TaskKey]struct{})
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.watchDir, e.Name())
		run, frameNumber, ok := s.pattern.Parse(e.Name())
		if !ok {
			continue
		}
		if key, changed := s.observeWithResult(path, run, frameNumber); changed {
			touched[key] = struct{}{}
		}
	}

	s.index.Cleanup(pathExists)

	for key := range touched {
		s.enqueueIfComplete(key)
	}
}

// observe upserts path into the index if its filename matches the
// configured pattern and its modification time has changed. Individual
// stat errors (vanished mid-iteration, permission) are swallowed,
// deferred to the next cleanup pass.
func (s *Scanner) observe(path string) {
	s.observeWithResult(path, 0, 0)
}

func (s *Scanner) observeWithResult(path string, knownRun uint16, knownFrameNumber uint32) (domain.TaskKey, bool) {
	run, frameNumber := knownRun, knownFrameNumber
	if knownFrameNumber == 0 {
		var ok bool
		run, frameNumber, ok = s.pattern.Parse(filepath.Base(path))
		if !ok {
			return domain.TaskKey{}, false
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.TaskKey{}, false
	}
	modTimeMs := info.ModTime().UnixMilli()

	if !s.index.HasFileChanged(path, modTimeMs) {
		return domain.KeyFor(run, frameNumber, uint32(s.setSize)), false
	}

	s.index.AddFile(path, run, frameNumber, modTimeMs)
	return domain.KeyFor(run, frameNumber, uint32(s.setSize)), true
}

func (s *Scanner) cleanupAndEnqueueAll() {
	s.index.Cleanup(pathExists)

	for _, set := range s.index.GetAllFileSets(false) {
		if set.Complete(s.setSize) {
			s.enqueuer.Enqueue(set.Key())
		}
	}
}

func (s *Scanner) enqueueIfComplete(key domain.TaskKey) {
	set, ok := s.index.GetFileSet(key)
	if !ok {
		return
	}
	if set.Complete(s.setSize) && !set.Processed {
		s.enqueuer.Enqueue(key)
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fmtRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &scanPanicError{r}
}

type scanPanicError struct{ v interface{} }

func (e *scanPanicError) Error() string {
	return "scanner: recovered panic"
}
