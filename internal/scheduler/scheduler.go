// Package scheduler implements a producer-consumer scheduler: a FIFO
// task queue feeding a bounded worker pool, with optimistic
// processed-marking and failure-revert.
package scheduler

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// idleSleep is how long the scheduler sleeps when neither reaping nor
// dispatching made progress.
const idleSleep = 50 * time.Millisecond

// Processor executes one set's full pipeline (read, compress, verify,
// write, enqueue-delete) and reports success or failure.
type Processor interface {
	Process(ctx context.Context, set domain.FileSet) error
}

// Scheduler owns the task queue, the enqueued-dedup set, and the bounded
// worker pool.
type Scheduler struct {
	index        ports.FileIndex
	processor    Processor
	outputDirFor func(domain.FileSet) string
	codecExt     string
	setSize      int
	maxProcesses atomic.Int32
	logger       ports.Logger
	gate         func() bool
	onResult     func(key domain.TaskKey, set domain.FileSet, err error)

	mu              sync.Mutex
	queue           []domain.TaskKey
	enqueued        map[domain.TaskKey]struct{}
	queueCond       *sync.Cond
	initialScanDone bool
	shuttingDown    bool

	inFlight sync.WaitGroup
}

// New creates a Scheduler. outputDirFor returns the output directory a
// set's archive belongs in (constant in the simple case, but kept as a
// function to allow per-run output layouts). codecExt is the archive
// file extension for the configured codec (e.g. "lz4" or "snpy"), used
// by the pre-dispatch archiveExists check so it matches what the
// processor actually writes. gate, if non-nil, is consulted before each
// dispatch and may return false to apply backpressure (see
// plugins/resourcegating).
func New(idx ports.FileIndex, processor Processor, outputDirFor func(domain.FileSet) string, codecExt string, setSize, maxProcesses int, logger ports.Logger, gate func() bool) *Scheduler {
	if maxProcesses < 1 {
		maxProcesses = 1
	}
	s := &Scheduler{
		index:        idx,
		processor:    processor,
		outputDirFor: outputDirFor,
		codecExt:     codecExt,
		setSize:      setSize,
		logger:       logger,
		gate:         gate,
		enqueued:     make(map[domain.TaskKey]struct{}),
	}
	s.maxProcesses.Store(int32(maxProcesses))
	s.queueCond = sync.NewCond(&s.mu)
	return s
}

// OnResult registers a callback invoked from a worker goroutine after
// every processing attempt, success or failure, for event-emission
// consumers (see pkg/frameark's EventHandler). It must not block.
func (s *Scheduler) OnResult(fn func(key domain.TaskKey, set domain.FileSet, err error)) {
	s.onResult = fn
}

// SetMaxProcesses changes the worker pool's capacity while the
// scheduler is running, for plugins/configwatcher-style hot reload.
// Workers already in flight are unaffected; the new limit applies to
// the next dispatch decision.
func (s *Scheduler) SetMaxProcesses(n int) {
	if n < 1 {
		n = 1
	}
	s.maxProcesses.Store(int32(n))
}

// Enqueue implements scanner.Enqueuer: it pushes key onto the task
// queue unless it is already present, so a set already in flight is
// never scheduled a second time before its worker finishes.
func (s *Scheduler) Enqueue(key domain.TaskKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enqueued[key]; ok {
		return
	}
	s.enqueued[key] = struct{}{}
	s.queue = append(s.queue, key)
	s.queueCond.Signal()
}

// NotifyInitialScanDone implements scanner.Enqueuer.
func (s *Scheduler) NotifyInitialScanDone() {
	s.mu.Lock()
	s.initialScanDone = true
	s.mu.Unlock()
	s.queueCond.Broadcast()
}

// Run executes the main scheduling loop until ctx is canceled. It
// returns once all in-flight workers have finished.
func (s *Scheduler) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shuttingDown = true
		s.mu.Unlock()
		s.queueCond.Broadcast()
	}()

	inFlightCount := 0
	var inFlightMu sync.Mutex
	results := make(chan workerResult, 256)

	for {
		didWork := false

		// Step 1: reap completed workers non-blockingly.
		for {
			select {
			case res := <-results:
				inFlightMu.Lock()
				inFlightCount--
				inFlightMu.Unlock()
				if !res.ok {
					s.index.MarkFileSetProcessed(res.key, false)
					s.logger.Warn("set processing failed, will retry", ports.String("key", res.key.String()))
				}
				didWork = true
				continue
			default:
			}
			break
		}

		if s.isDone(ctx) {
			break
		}

		// Step 2: dispatch while the pool has capacity.
		inFlightMu.Lock()
		hasCapacity := inFlightCount < int(s.maxProcesses.Load())
		inFlightMu.Unlock()

		if hasCapacity && (s.gate == nil || s.gate()) {
			key, ok := s.nextKey(ctx)
			if ok {
				set, exists := s.index.GetFileSet(key)
				if !exists {
					s.removeFromEnqueued(key)
				} else if !set.Complete(s.setSize) {
					// defensive: should not happen, the enqueue path only
					// pushes complete sets.
					s.removeFromEnqueued(key)
				} else if archiveExists(set, s.outputDirFor(set), s.codecExt) {
					s.index.MarkFileSetProcessed(key, true)
					s.removeFromEnqueued(key)
				} else {
					s.index.MarkFileSetProcessed(key, true)
					inFlightMu.Lock()
					inFlightCount++
					inFlightMu.Unlock()
					s.inFlight.Add(1)
					go s.runWorker(ctx, key, set, results)
					didWork = true
				}
			}
		}

		if !didWork {
			time.Sleep(idleSleep)
		}
	}

	s.inFlight.Wait()
	s.drainRemaining(results, &inFlightCount, &inFlightMu)
}

func (s *Scheduler) drainRemaining(results chan workerResult, inFlightCount *int, mu *sync.Mutex) {
	for {
		select {
		case res := <-results:
			if !res.ok {
				s.index.MarkFileSetProcessed(res.key, false)
			}
		default:
			return
		}
	}
}

type workerResult struct {
	key domain.TaskKey
	ok  bool
}

func (s *Scheduler) runWorker(ctx context.Context, key domain.TaskKey, set domain.FileSet, results chan<- workerResult) {
	defer s.inFlight.Done()
	defer s.removeFromEnqueued(key)

	err := s.processor.Process(ctx, set)
	results <- workerResult{key: key, ok: err == nil}
	if err != nil {
		s.logger.Error("set processing error", ports.String("key", key.String()), ports.Err(err))
	}
	if s.onResult != nil {
		s.onResult(key, set, err)
	}
}

func (s *Scheduler) removeFromEnqueued(key domain.TaskKey) {
	s.mu.Lock()
	delete(s.enqueued, key)
	s.mu.Unlock()
}

// nextKey blocks until a key is available, the initial scan is done and
// the queue is empty, or shutdown is requested.
func (s *Scheduler) nextKey(ctx context.Context) (domain.TaskKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 {
		if s.shuttingDown || ctx.Err() != nil {
			return domain.TaskKey{}, false
		}
		if s.initialScanDone {
			return domain.TaskKey{}, false
		}
		s.queueCond.Wait()
	}

	key := s.queue[0]
	s.queue = s.queue[1:]
	return key, true
}

func (s *Scheduler) isDone(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown || ctx.Err() != nil
}

func archiveExists(set domain.FileSet, outputDir, codecExt string) bool {
	path := set.OutputPathExt(outputDir, codecExt)
	if path == "" {
		return false
	}
	return fileExists(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
