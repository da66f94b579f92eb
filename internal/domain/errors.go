package domain

import "errors"

// Domain errors represent error conditions in the frameark domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running monitor.
	ErrAlreadyRunning = errors.New("frameark: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped monitor.
	ErrNotRunning = errors.New("frameark: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("frameark: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("frameark: invalid configuration")
)

// Processing errors are returned by the set processor and archive codec.
// They never cross the scheduler's main loop; the scheduler converts them
// into a processed=false revert and logs them.
var (
	// ErrReadFailure means one or more source files could not be fully read.
	ErrReadFailure = errors.New("frameark: read failure")

	// ErrCompressFailure means the block compressor returned an error.
	ErrCompressFailure = errors.New("frameark: compress failure")

	// ErrIntegrityFailure means the in-memory decompression self-check failed.
	ErrIntegrityFailure = errors.New("frameark: integrity failure")

	// ErrWriteFailure means the archive could not be written, or was written
	// at the wrong size.
	ErrWriteFailure = errors.New("frameark: write failure")

	// ErrMalformedArchive means the archive framing (length prefixes) is
	// internally inconsistent.
	ErrMalformedArchive = errors.New("frameark: malformed archive")

	// ErrUnsupportedVersion means the archive metadata version is not one
	// this codec understands.
	ErrUnsupportedVersion = errors.New("frameark: unsupported archive version")

	// ErrCorruptPayload means the decompressed payload length does not
	// match the metadata's declared sum of original sizes.
	ErrCorruptPayload = errors.New("frameark: corrupt payload")

	// ErrIndexCorrupt means the persistent index file failed to load and
	// the in-memory index was reset to empty.
	ErrIndexCorrupt = errors.New("frameark: index corrupt")

	// ErrHeaderMismatch means a merge's computed strip length would exceed
	// the capacity of the original TIFF header it is being overwritten into.
	ErrHeaderMismatch = errors.New("frameark: header mismatch")
)
