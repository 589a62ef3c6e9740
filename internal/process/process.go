package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// runningProcess holds handles for monitoring one launched subprocess.
type runningProcess struct {
	cmd         *exec.Cmd
	processDone <-chan error
	outputDone  chan struct{} // receives twice, once per output stream
}

// startProcess parses the command, starts the subprocess, and returns handles
// for monitoring it.
func (s *Supervisor) startProcess(command string) (*runningProcess, error) {
	args, err := parseCommand(command)
	if err != nil {
		s.opts.Logger.Error("Failed to parse command", "id", s.id, "error", err)
		return nil, err
	}
	if len(args) == 0 {
		s.opts.Logger.Error("Empty command", "id", s.id)
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.opts.Logger.Error("Failed to create stdout pipe", "id", s.id, "error", err)
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.opts.Logger.Error("Failed to create stderr pipe", "id", s.id, "error", err)
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		s.opts.Logger.Error("Failed to start process", "id", s.id, "error", err)
		return nil, err
	}

	s.opts.Logger.Info("Process started", "id", s.id, "pid", cmd.Process.Pid)

	outputDone := make(chan struct{}, 2)
	go func() {
		s.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		s.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	processDone := make(chan error, 1)
	go func() {
		processDone <- cmd.Wait()
	}()

	return &runningProcess{cmd: cmd, processDone: processDone, outputDone: outputDone}, nil
}

// stopProcess requests graceful termination with SIGINT and escalates to
// SIGKILL after the graceful timeout. Returns the process exit code.
func (s *Supervisor) stopProcess(rp *runningProcess) int {
	if rp.cmd.Process != nil {
		s.opts.Logger.Info("Sending SIGINT to process", "id", s.id, "pid", rp.cmd.Process.Pid)
		if err := rp.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.opts.Logger.Warn("Failed to send SIGINT", "id", s.id, "error", err)
		}
	}

	select {
	case err := <-rp.processDone:
		return exitCodeFromError(err)
	case <-time.After(s.opts.GracefulTimeout):
		s.opts.Logger.Warn("Graceful shutdown timeout, forcing kill", "id", s.id, "timeout", s.opts.GracefulTimeout)
		if rp.cmd.Process != nil {
			if err := rp.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.opts.Logger.Error("Failed to kill process", "id", s.id, "error", err)
			}
		}
		// Secondary timeout so a wedged process cannot hang shutdown.
		select {
		case <-rp.processDone:
		case <-time.After(s.opts.KillTimeout):
			s.opts.Logger.Error("Process did not exit after kill signal", "id", s.id)
		}
		return 137
	}
}

// waitOutputDone waits for both output streams to drain.
func (s *Supervisor) waitOutputDone(outputDone <-chan struct{}) {
	<-outputDone
	<-outputDone
}

// streamOutput relogs subprocess output through the process logger at the
// level extracted by the configured parser.
func (s *Supervisor) streamOutput(reader io.Reader, source string) {
	logger := s.opts.ProcessLogger
	if logger == nil {
		logger = s.opts.Logger
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if s.opts.LogParser != nil {
			level, msg = s.opts.LogParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace", "verbose":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		s.opts.Logger.Warn("Error reading output", "id", s.id, "source", source, "error", err)
	}
}

// exitCodeFromError extracts the exit code from a process wait error.
// Returns 0 for nil, the exit code for ExitError, or 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
