package events

// Event type constants for kelindar/event.
const (
	TypeGroupStateChanged uint32 = iota + 1
	TypeGroupRestarted
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// GroupStateChangedEvent represents a supervisor state transition for a group.
type GroupStateChangedEvent struct {
	GroupID   string   `json:"group_id"`
	OldState  string   `json:"old_state"`
	NewState  string   `json:"new_state"`
	Endpoints []string `json:"endpoints"`
	Timestamp string   `json:"timestamp"`
}

// Type returns the event type identifier for GroupStateChangedEvent.
func (e GroupStateChangedEvent) Type() uint32 { return TypeGroupStateChanged }

// GroupRestartedEvent represents an unexpected encoder exit and the restart
// that follows it.
type GroupRestartedEvent struct {
	GroupID   string `json:"group_id"`
	Restarts  int    `json:"restarts"`
	ExitCode  int    `json:"exit_code"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for GroupRestartedEvent.
func (e GroupRestartedEvent) Type() uint32 { return TypeGroupRestarted }

// ConfigReloadedEvent represents a successful endpoints-file reload.
type ConfigReloadedEvent struct {
	Path      string `json:"path"`
	Endpoints int    `json:"endpoints"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }
