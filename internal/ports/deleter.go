package ports

import "context"

// DeleteTask is a batch of source paths to remove once their archive is
// confirmed on disk, with one path exempted (the set's firstFile).
type DeleteTask struct {
	Paths    []string
	Preserve string
}

// Deleter is the safe-deletion port: an asynchronous, queue-backed
// component that removes source files only after they have been
// filtered through a safety predicate.
type Deleter interface {
	// Enqueue queues task for deletion. It never blocks on the actual
	// unlink work.
	Enqueue(task DeleteTask)

	// Start runs the deleter's drain loop until ctx is canceled or Stop
	// is called, processing every task still queued before returning.
	Start(ctx context.Context)

	// Stop requests the drain loop exit once the queue is empty and
	// waits for it to do so.
	Stop()
}
