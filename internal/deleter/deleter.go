// Package deleter implements a safe deletion queue: a dedicated worker
// draining a mutex-protected queue of delete tasks, filtering each
// through isSafeToDelete before removing anything. Deletion is a single
// portable unlink loop rather than a platform-conditional batch path,
// since a sequential os.Remove loop behaves identically on every
// platform under the isSafeToDelete predicate.
package deleter

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/lattice-sci/frameark/internal/domain"
	"github.com/lattice-sci/frameark/internal/ports"
)

// Deleter is the queue-backed implementation of ports.Deleter.
type Deleter struct {
	logger ports.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	tasks []ports.DeleteTask

	running bool
	done    chan struct{}
}

// New creates a Deleter. It does not start processing until Start is
// called.
func New(logger ports.Logger) *Deleter {
	d := &Deleter{logger: logger}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Enqueue implements ports.Deleter.
func (d *Deleter) Enqueue(task ports.DeleteTask) {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
	d.cond.Signal()
}

// Start implements ports.Deleter. It runs the drain loop until ctx is
// canceled or Stop is called.
func (d *Deleter) Start(ctx context.Context) {
	d.mu.Lock()
	d.running = true
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	defer close(d.done)

	for {
		task, ok := d.nextTask()
		if !ok {
			return
		}
		d.processTask(task)
	}
}

// Stop implements ports.Deleter.
func (d *Deleter) Stop() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.cond.Broadcast()
	if d.done != nil {
		<-d.done
	}
}

func (d *Deleter) nextTask() (ports.DeleteTask, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.tasks) == 0 && d.running {
		d.cond.Wait()
	}
	if len(d.tasks) == 0 {
		return ports.DeleteTask{}, false
	}

	task := d.tasks[0]
	d.tasks = d.tasks[1:]
	return task, true
}

// processTask filters task's paths through isSafeToDelete, excluding
// Preserve, then unlinks each survivor. Per-file failures are logged
// and do not propagate.
func (d *Deleter) processTask(task ports.DeleteTask) {
	for _, path := range task.Paths {
		if path == task.Preserve {
			continue
		}
		if !isSafeToDelete(path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if d.logger != nil {
				d.logger.Warn("delete failed", ports.String("path", path), ports.Err(err))
			}
		}
	}
}

// isSafeToDelete reports whether path may be deleted: the file must
// exist, be a regular file, have a .tif extension, and match the frame
// filename grammar.
func isSafeToDelete(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	if filepath.Ext(path) != ".tif" {
		return false
	}
	return domain.MatchesFrameGrammar(filepath.Base(path))
}

var _ ports.Deleter = (*Deleter)(nil)
