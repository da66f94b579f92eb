// Package domain contains the core domain entities and value objects for
// frameark.
//
// This package represents the innermost layer of the Clean Architecture. It
// has no dependencies on infrastructure concerns (file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [TaskKey]: the unit of scheduling, a (run, setNumber) pair
//   - [FileSet]: the ordered group of frame paths that make up one set
//   - [FramePattern]: the compiled "<prefix>_<RR>_<NNNNN>.tif" grammar
//   - [ArchiveMetadata], [FileEntry]: the on-disk archive container's
//     metadata table, shared by both supported codecs
//
// Domain entities are free of infrastructure dependencies and are testable
// without mocks or external systems.
package domain
