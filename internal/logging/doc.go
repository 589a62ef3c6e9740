// Package logging provides slog-based structured logging with per-module
// loggers and runtime-adjustable levels.
//
// Each module obtains its logger via GetLogger("name"); the returned logger
// carries a module attribute and its level can be overridden per module in
// the logging configuration. Output goes to stdout (text or json) and, when
// running under systemd, to the journal.
package logging
