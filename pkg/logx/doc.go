// Package logx wraps zerolog behind a small Logger/Service pair.
//
// The Service owns the sinks (console, file, recent-log ring, operator
// alerts) and can be re-applied at runtime; Loggers handed out earlier keep
// following the current configuration.
package logx
