package broker

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

// State is the outcome of one supervisor run.
type State int

const (
	StateUnknown State = iota
	StateAbsent
	StateRunningMatched
	StateRunningMismatched
	StateStarted
	StateRecoveryFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateRunningMatched:
		return "running_matched"
	case StateRunningMismatched:
		return "running_mismatched"
	case StateStarted:
		return "started"
	case StateRecoveryFailed:
		return "recovery_failed"
	default:
		return "unknown"
	}
}

// Config names the broker binary and the configuration it must run with.
type Config struct {
	// Executable is the broker binary name; a process whose name or command
	// line contains it is considered the broker.
	Executable string
	// ConfigPath is the absolute configuration file path expected in the
	// broker's argument list. Empty disables supervision entirely.
	ConfigPath string
	// Grace is how long a terminated broker gets to exit before it is
	// force-killed. Defaults to 3s.
	Grace time.Duration
	// Settle is how long to wait after a start before confirming the broker
	// came up. Defaults to 1s.
	Settle time.Duration
}

const (
	defaultGrace  = 3 * time.Second
	defaultSettle = time.Second
)

// Supervisor reconciles the broker process against Config.
type Supervisor struct {
	cfg    Config
	table  ProcessTable
	launch Launcher
	log    *slog.Logger
}

// Option overrides a Supervisor collaborator, chiefly for tests.
type Option func(*Supervisor)

func WithProcessTable(t ProcessTable) Option {
	return func(s *Supervisor) { s.table = t }
}

func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) { s.launch = l }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	s := &Supervisor{
		cfg:    cfg,
		table:  sysTable{},
		launch: execLauncher{},
		log:    slog.Default().With("component", "broker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureReady checks the broker once and repairs it if needed. Call it at
// program start, before opening any transport session. It never panics and
// never returns an error: failures degrade to StateRecoveryFailed and
// surface later as ordinary transport connect errors.
func (s *Supervisor) EnsureReady() State {
	if s.cfg.ConfigPath == "" {
		s.log.Debug("empty expected config path, skipping broker check")
		return StateUnknown
	}

	proc, found := s.findBroker()
	if !found {
		s.log.Warn("broker is not running", "executable", s.cfg.Executable)
		return s.start(StateAbsent)
	}

	if slices.Contains(proc.Cmdline, s.cfg.ConfigPath) {
		s.log.Debug("broker running with expected config", "pid", proc.PID)
		return StateRunningMatched
	}

	s.log.Warn("broker config mismatch, restarting",
		"pid", proc.PID, "cmdline", strings.Join(proc.Cmdline, " "), "want", s.cfg.ConfigPath)
	s.stop(proc.PID)
	return s.start(StateRunningMismatched)
}

// findBroker scans the process table for the first process whose name or
// command line mentions the broker executable. Scan order is the only
// tie-break among multiple candidates.
func (s *Supervisor) findBroker() (ProcessInfo, bool) {
	procs, err := s.table.Snapshot()
	if err != nil {
		s.log.Warn("process table scan failed", "error", err)
		return ProcessInfo{}, false
	}
	for _, proc := range procs {
		if strings.Contains(proc.Name, s.cfg.Executable) ||
			strings.Contains(strings.Join(proc.Cmdline, " "), s.cfg.Executable) {
			return proc, true
		}
	}
	return ProcessInfo{}, false
}

// stop requests graceful termination and escalates to kill after the grace
// period. Signal errors are logged and otherwise ignored; the process may
// have exited on its own.
func (s *Supervisor) stop(pid int32) {
	if err := s.table.Terminate(pid); err != nil {
		s.log.Warn("terminate failed", "pid", pid, "error", err)
	}
	if s.table.WaitExit(pid, s.cfg.Grace) {
		return
	}
	s.log.Warn("broker did not exit in time, killing", "pid", pid)
	if err := s.table.Kill(pid); err != nil {
		s.log.Warn("kill failed", "pid", pid, "error", err)
	}
}

// start launches the broker and confirms it with a single re-scan after the
// settle period.
func (s *Supervisor) start(from State) State {
	if _, err := os.Stat(s.cfg.ConfigPath); err != nil {
		// The broker decides whether it can live without its config file.
		s.log.Warn("broker config file not readable", "path", s.cfg.ConfigPath, "error", err)
	}

	s.log.Info("starting broker", "executable", s.cfg.Executable, "config", s.cfg.ConfigPath, "from", from)
	if err := s.launch.Start(s.cfg.Executable, "--config", s.cfg.ConfigPath); err != nil {
		s.log.Warn("broker start failed", "error", err)
	}

	time.Sleep(s.cfg.Settle)

	if _, found := s.findBroker(); found {
		s.log.Info("broker is up")
		return StateStarted
	}
	s.log.Error("broker recovery failed", "executable", s.cfg.Executable)
	return StateRecoveryFailed
}
