// Package orchestrator runs one encoder supervisor per stream group and owns
// the process lifecycle from startup through signal-driven shutdown.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"loopcast/internal/events"
	"loopcast/internal/ffmpeg"
	"loopcast/internal/metrics"
	"loopcast/internal/process"
	"loopcast/internal/source"
	"loopcast/internal/stream"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for all encoders to
// terminate before giving up.
const DefaultShutdownTimeout = 15 * time.Second

// Options configures an Orchestrator.
type Options struct {
	// Logger for orchestration events. If nil, uses slog.Default().
	Logger *slog.Logger

	// EncoderLogger receives relogged encoder output (nil = Logger).
	EncoderLogger *slog.Logger

	// Bus publishes group lifecycle events. Optional.
	Bus *events.Bus

	// Metrics tracks group counts. Optional.
	Metrics *metrics.Metrics

	// RestartDelay, MaxRestarts, GracefulTimeout and KillTimeout are passed
	// through to every supervisor; zero values use the supervisor defaults.
	RestartDelay    time.Duration
	MaxRestarts     int
	GracefulTimeout time.Duration
	KillTimeout     time.Duration

	// ShutdownTimeout bounds the total wait during Shutdown.
	// Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// Orchestrator owns one supervisor per stream group.
type Orchestrator struct {
	opts Options

	mu          sync.Mutex
	supervisors map[string]*supervised
	order       []string

	shutdownOnce sync.Once
	shutdownErr  error
}

// supervised pairs a supervisor with the group it encodes.
type supervised struct {
	sup   *process.Supervisor
	group *stream.Group
}

// New creates an Orchestrator. Call Start to launch encoders.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Orchestrator{
		opts:        opts,
		supervisors: make(map[string]*supervised),
	}
}

// BuildGroups resolves every endpoint source and partitions the survivors
// into encoder groups. Endpoints whose source cannot be resolved are skipped
// with a warning unless strict is set, in which case the first resolution
// failure aborts the build.
func BuildGroups(endpoints []stream.Endpoint, resolver *source.Resolver, strict bool, logger *slog.Logger) ([]*stream.Group, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resolved := make([]stream.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		path, err := resolver.Resolve(ep.Source)
		if err != nil {
			var resErr *source.ResolutionError
			if errors.As(err, &resErr) && !strict {
				logger.Warn("Skipping endpoint, source unavailable",
					"endpoint", ep.ID(),
					"source", ep.Source,
					"error", err)
				continue
			}
			return nil, fmt.Errorf("resolve source for %s: %w", ep.ID(), err)
		}
		ep.SourcePath = path
		resolved = append(resolved, ep)
	}

	if len(resolved) == 0 {
		return nil, errors.New("no endpoints with a resolvable source")
	}

	return stream.GroupEndpoints(resolved), nil
}

// Start launches one supervisor per group and returns once every supervisor
// has attempted its first launch.
func (o *Orchestrator) Start(groups []*stream.Group) {
	o.mu.Lock()
	started := make([]<-chan struct{}, 0, len(groups))
	for _, g := range groups {
		sv := o.launchLocked(g)
		started = append(started, sv.sup.Started())
	}
	groupCount := len(o.order)
	o.mu.Unlock()

	if o.opts.Metrics != nil {
		o.opts.Metrics.SetGroupCount(groupCount)
	}

	for _, ch := range started {
		<-ch
	}
	o.opts.Logger.Info("All encoders launched", "groups", len(groups))
}

// launchLocked creates and starts the supervisor for a group.
// Caller holds o.mu.
func (o *Orchestrator) launchLocked(g *stream.Group) *supervised {
	id := g.ID()
	command := CommandForGroup(g)

	// The supervised entry is created first so the state-change callback can
	// read the group through it; Reload swaps the group in place.
	sv := &supervised{group: g}
	sv.sup = process.NewSupervisor(id, command, &process.Options{
		RestartDelay:    o.opts.RestartDelay,
		MaxRestarts:     o.opts.MaxRestarts,
		GracefulTimeout: o.opts.GracefulTimeout,
		KillTimeout:     o.opts.KillTimeout,
		Logger:          o.opts.Logger.With("group", id),
		ProcessLogger:   o.encoderLogger().With("group", id),
		LogParser:       ffmpeg.ParseLogLevel,
		OnStateChange:   o.onStateChange(sv),
		OnRestart:       o.onRestart(),
	})

	o.supervisors[id] = sv
	o.order = append(o.order, id)

	o.opts.Logger.Info("Starting encoder",
		"group", id,
		"endpoints", g.EndpointIDs(),
		"bitrate", g.Key.Bitrate)
	go sv.sup.Run()
	return sv
}

func (o *Orchestrator) encoderLogger() *slog.Logger {
	if o.opts.EncoderLogger != nil {
		return o.opts.EncoderLogger
	}
	return o.opts.Logger
}

func (o *Orchestrator) onStateChange(sv *supervised) process.StateChangeCallback {
	return func(id string, oldState, newState process.State) {
		if o.opts.Bus == nil {
			return
		}
		o.mu.Lock()
		endpoints := sv.group.EndpointIDs()
		o.mu.Unlock()
		o.opts.Bus.Publish(events.GroupStateChangedEvent{
			GroupID:   id,
			OldState:  string(oldState),
			NewState:  string(newState),
			Endpoints: endpoints,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (o *Orchestrator) onRestart() process.RestartCallback {
	return func(id string, restarts, exitCode int) {
		if o.opts.Bus == nil {
			return
		}
		o.opts.Bus.Publish(events.GroupRestartedEvent{
			GroupID:   id,
			Restarts:  restarts,
			ExitCode:  exitCode,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// CommandForGroup renders the full encoder command line for a group.
func CommandForGroup(g *stream.Group) string {
	p := &ffmpeg.Params{
		Source:  g.Key.SourcePath,
		Bitrate: g.Key.Bitrate,
	}
	for i := range g.Endpoints {
		ep := &g.Endpoints[i]
		p.Outputs = append(p.Outputs, ffmpeg.Output{
			URL:  ep.IcecastURL(),
			Name: ep.StreamName,
		})
	}
	return ffmpeg.BuildCommand(p)
}

// Reload diffs the new endpoint set against the running groups. Changed
// groups get a restart with the new command, vanished groups are stopped,
// and new groups are launched. Resolution failures skip the endpoint, never
// the whole reload.
func (o *Orchestrator) Reload(endpoints []stream.Endpoint, resolver *source.Resolver) error {
	groups, err := BuildGroups(endpoints, resolver, false, o.opts.Logger)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	o.mu.Lock()
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		id := g.ID()
		seen[id] = true

		sv, ok := o.supervisors[id]
		if !ok {
			o.launchLocked(g)
			continue
		}

		sv.group = g
		command := CommandForGroup(g)
		if sv.sup.Command() != command {
			o.opts.Logger.Info("Group changed, restarting encoder", "group", id)
			sv.sup.RequestRestart(command)
		}
	}

	var stopped []string
	for id, sv := range o.supervisors {
		if seen[id] {
			continue
		}
		o.opts.Logger.Info("Group removed, stopping encoder", "group", id)
		sv.sup.Stop()
		stopped = append(stopped, id)
	}
	for _, id := range stopped {
		delete(o.supervisors, id)
	}
	if len(stopped) > 0 {
		order := o.order[:0]
		for _, id := range o.order {
			if _, ok := o.supervisors[id]; ok {
				order = append(order, id)
			}
		}
		o.order = order
	}
	groupCount := len(o.order)
	o.mu.Unlock()

	if o.opts.Metrics != nil {
		o.opts.Metrics.SetGroupCount(groupCount)
	}
	return nil
}

// AwaitSignal blocks until SIGINT or SIGTERM, then shuts down. A second
// interrupt during shutdown exits immediately with status 130.
//
// A shutdown that overruns its timeout is logged, not returned: by then the
// stragglers have already been kill-escalated, and only a startup
// configuration failure may surface as a nonzero exit.
func (o *Orchestrator) AwaitSignal() error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	o.opts.Logger.Info("Received signal, shutting down", "signal", sig.String())

	done := make(chan error, 1)
	go func() { done <- o.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			o.opts.Logger.Warn("Shutdown did not finish cleanly", "error", err)
		}
		return nil
	case sig = <-sigCh:
		o.opts.Logger.Warn("Second signal, exiting immediately", "signal", sig.String())
		os.Exit(130)
		return nil
	}
}

// Shutdown stops every supervisor and waits for them to finish, bounded by
// ShutdownTimeout. Safe to call more than once.
func (o *Orchestrator) Shutdown() error {
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		all := make([]*supervised, 0, len(o.supervisors))
		for _, sv := range o.supervisors {
			all = append(all, sv)
		}
		o.mu.Unlock()

		o.opts.Logger.Info("Stopping encoders", "count", len(all))
		for _, sv := range all {
			sv.sup.Stop()
		}

		deadline := time.After(o.opts.ShutdownTimeout)
		for _, sv := range all {
			select {
			case <-sv.sup.Done():
			case <-deadline:
				o.shutdownErr = fmt.Errorf("shutdown timed out after %s waiting for %s",
					o.opts.ShutdownTimeout, sv.sup.ID())
				return
			}
		}
		o.opts.Logger.Info("All encoders stopped")
	})
	return o.shutdownErr
}

// Groups returns the IDs of the currently supervised groups, in launch order.
func (o *Orchestrator) Groups() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
