// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [FileIndex]: the persistent (run,set) -> FileSet mapping
//   - [ArchiveCodec]: compresses/decompresses the archive container format
//   - [Deleter]: asynchronous, safety-checked source-file deletion
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Concrete implementations live in internal/index, internal/codec,
// internal/deleter, and internal/adapters/log (zerolog).
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
