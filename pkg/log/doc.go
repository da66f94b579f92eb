// Package log provides frameark's structured logging abstraction: a
// Logger interface implementations can back with zerolog, a no-op
// sink, or any other logging library, without embedders needing to
// import an internal package.
//
// # Usage
//
// Use the zerolog adapter wired into the CLI binaries:
//
//	logger := log.NewZerologAdapter()
//
// Or the no-op logger, useful in tests that don't assert on log
// output:
//
//	logger := log.NewNoopLogger()
//
// # Custom loggers
//
// Implement Logger to route frameark's events into existing logging
// infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
