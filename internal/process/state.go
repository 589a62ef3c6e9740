package process

// State represents the current state of a supervised process.
type State string

// Supervisor states. Stopped is terminal.
const (
	StateStarting   State = "starting"   // Process being launched
	StateRunning    State = "running"    // Process active
	StateRestarting State = "restarting" // Waiting out the restart delay
	StateStopping   State = "stopping"   // Shutdown requested, process terminating
	StateStopped    State = "stopped"    // Supervision finished
)

// StateChangeCallback is called on every supervisor state transition.
// Used for domain-specific reactions (events, metrics).
type StateChangeCallback func(id string, oldState, newState State)

// RestartCallback is called after each unexpected process exit, before the
// restart delay. restarts is the cumulative failure count for this supervisor.
type RestartCallback func(id string, restarts int, exitCode int)

// LogParser parses a process output line and returns the log level and
// message. Used to relog encoder output (ffmpeg etc.) at the right level.
type LogParser func(line string) (level, msg string)
