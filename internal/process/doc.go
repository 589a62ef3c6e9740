// Package process provides encoder subprocess supervision.
//
// A Supervisor owns the lifecycle of one external encoder process:
//   - launch, stream stdout/stderr through a pluggable log parser
//   - restart after a configurable delay when the process exits unexpectedly
//     (by default forever; MaxRestarts caps the retries)
//   - graceful shutdown with SIGINT, escalating to SIGKILL after a timeout
//   - restart with a new command when the configuration changes
//
// The desired-state of a Supervisor transitions to stopping exactly once via
// Stop(); it never reverts to running. Run() blocks for the supervised
// lifetime and is meant to be driven on its own goroutine, one per group.
package process
