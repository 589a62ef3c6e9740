package process

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default supervision timing.
const (
	DefaultRestartDelay    = 3 * time.Second
	DefaultGracefulTimeout = 5 * time.Second
	DefaultKillTimeout     = 5 * time.Second
)

// Options configures a Supervisor.
type Options struct {
	// RestartDelay is the pause between an unexpected exit and the next
	// launch. Defaults to DefaultRestartDelay.
	RestartDelay time.Duration

	// MaxRestarts caps consecutive restarts; 0 means retry forever, which is
	// the default policy for unattended streaming.
	MaxRestarts int

	// GracefulTimeout bounds the wait after SIGINT before escalating to
	// SIGKILL. Defaults to DefaultGracefulTimeout.
	GracefulTimeout time.Duration

	// KillTimeout bounds the wait after SIGKILL before giving up.
	// Defaults to DefaultKillTimeout.
	KillTimeout time.Duration

	// Logger for supervision events. If nil, uses slog.Default().
	Logger *slog.Logger

	// ProcessLogger receives the subprocess output (nil = Logger).
	ProcessLogger *slog.Logger

	// LogParser extracts log levels from subprocess output (nil = info).
	LogParser LogParser

	// OnStateChange is called on state transitions (optional).
	OnStateChange StateChangeCallback

	// OnRestart is called after each unexpected exit (optional).
	OnRestart RestartCallback
}

// Supervisor keeps one encoder process alive for a group until Stop is
// called.
type Supervisor struct {
	id        string
	command   string
	commandMu sync.RWMutex
	opts      Options

	// ctx carries the desired-state: cancellation means stopping, and the
	// transition is monotonic through stopOnce.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	restartChan chan string

	mu       sync.RWMutex
	state    State
	restarts int
	lastExit time.Time

	started   chan struct{}
	startOnce sync.Once
	done      chan struct{}
}

// NewSupervisor creates a supervisor for the given command. id names the
// supervised group in logs and callbacks.
func NewSupervisor(id, command string, opts *Options) *Supervisor {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.RestartDelay == 0 {
		o.RestartDelay = DefaultRestartDelay
	}
	if o.GracefulTimeout == 0 {
		o.GracefulTimeout = DefaultGracefulTimeout
	}
	if o.KillTimeout == 0 {
		o.KillTimeout = DefaultKillTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		id:          id,
		command:     command,
		opts:        o,
		ctx:         ctx,
		cancel:      cancel,
		restartChan: make(chan string, 1),
		state:       StateStarting,
		started:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run supervises the process until Stop is called or the restart budget is
// exhausted. It blocks for the supervised lifetime.
func (s *Supervisor) Run() {
	defer close(s.done)
	defer s.setState(StateStopped)

	for {
		if s.ctx.Err() != nil {
			return
		}

		// A restart request that arrived during backoff carries a newer
		// command; it must win over the one that just failed.
		select {
		case newCmd := <-s.restartChan:
			s.setCommand(newCmd)
		default:
		}

		s.setState(StateStarting)
		rp, err := s.startProcess(s.Command())
		s.startOnce.Do(func() { close(s.started) })

		if err != nil {
			if !s.backoff(1) {
				return
			}
			continue
		}

		s.setState(StateRunning)

		select {
		case <-s.ctx.Done():
			s.setState(StateStopping)
			exitCode := s.stopProcess(rp)
			s.waitOutputDone(rp.outputDone)
			s.opts.Logger.Info("Process stopped", "id", s.id, "exit_code", exitCode)
			return

		case newCmd := <-s.restartChan:
			s.opts.Logger.Info("Restarting with updated command", "id", s.id)
			s.stopProcess(rp)
			s.waitOutputDone(rp.outputDone)
			s.setCommand(newCmd)

		case processErr := <-rp.processDone:
			exitCode := exitCodeFromError(processErr)
			s.waitOutputDone(rp.outputDone)
			s.opts.Logger.Warn("Process exited unexpectedly, will restart",
				"id", s.id, "exit_code", exitCode, "delay", s.opts.RestartDelay)
			if !s.backoff(exitCode) {
				return
			}
		}
	}
}

// backoff records a failure and waits out the restart delay. Returns false
// when supervision should end: stop was requested or the restart budget is
// exhausted.
func (s *Supervisor) backoff(exitCode int) bool {
	s.mu.Lock()
	s.restarts++
	s.lastExit = time.Now()
	restarts := s.restarts
	s.mu.Unlock()

	if s.opts.OnRestart != nil {
		s.opts.OnRestart(s.id, restarts, exitCode)
	}

	if s.opts.MaxRestarts > 0 && restarts >= s.opts.MaxRestarts {
		s.opts.Logger.Error("Restart limit reached, giving up",
			"id", s.id, "restarts", restarts, "max_restarts", s.opts.MaxRestarts)
		return false
	}

	s.setState(StateRestarting)
	select {
	case <-time.After(s.opts.RestartDelay):
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Stop transitions the desired-state to stopping. Idempotent; the running
// process receives SIGINT from the Run loop and is killed after the graceful
// timeout if it does not exit.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.opts.Logger.Info("Stop requested", "id", s.id)
		s.cancel()
	})
}

// RequestRestart asks the supervisor to relaunch with a new command.
// Non-blocking: if a restart is already pending, this is a no-op.
func (s *Supervisor) RequestRestart(newCommand string) {
	select {
	case s.restartChan <- newCommand:
		s.opts.Logger.Info("Restart requested", "id", s.id)
	default:
		s.opts.Logger.Warn("Restart already pending, ignoring", "id", s.id)
	}
}

// Started is closed after the first launch attempt, successful or not.
func (s *Supervisor) Started() <-chan struct{} { return s.started }

// Done is closed when supervision has fully finished.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// ID returns the supervised group identifier.
func (s *Supervisor) ID() string { return s.id }

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Restarts returns the cumulative number of unexpected exits.
func (s *Supervisor) Restarts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restarts
}

// LastExit returns the time of the most recent unexpected exit.
func (s *Supervisor) LastExit() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastExit
}

// Command returns the current command string.
func (s *Supervisor) Command() string {
	s.commandMu.RLock()
	defer s.commandMu.RUnlock()
	return s.command
}

func (s *Supervisor) setCommand(command string) {
	s.commandMu.Lock()
	s.command = command
	s.commandMu.Unlock()
}

func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState != newState && s.opts.OnStateChange != nil {
		s.opts.OnStateChange(s.id, oldState, newState)
	}
}
