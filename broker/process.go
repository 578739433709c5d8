package broker

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo is one row of the OS process table. Handles are not cached
// across supervisor runs; every check re-discovers the broker.
type ProcessInfo struct {
	PID     int32
	Name    string
	Cmdline []string
}

// ProcessTable abstracts process discovery and signalling so the
// supervisor's decisions can be tested against a fake table.
type ProcessTable interface {
	Snapshot() ([]ProcessInfo, error)
	Terminate(pid int32) error
	Kill(pid int32) error
	// WaitExit reports whether the process left the table within timeout.
	WaitExit(pid int32, timeout time.Duration) bool
}

// Launcher starts the broker binary as a detached process.
type Launcher interface {
	Start(executable string, args ...string) error
}

const exitPollInterval = 100 * time.Millisecond

// sysTable reads the real process table.
type sysTable struct{}

func (sysTable) Snapshot() ([]ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		// A process can vanish between enumeration and inspection; skip it.
		name, err := p.Name()
		if err != nil {
			continue
		}
		cmdline, err := p.CmdlineSlice()
		if err != nil {
			cmdline = nil
		}
		out = append(out, ProcessInfo{PID: p.Pid, Name: name, Cmdline: cmdline})
	}
	return out, nil
}

func (sysTable) Terminate(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (sysTable) Kill(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func (sysTable) WaitExit(pid int32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		exists, err := process.PidExists(pid)
		if err != nil || !exists {
			return true
		}
		time.Sleep(exitPollInterval)
	}
	exists, err := process.PidExists(pid)
	return err != nil || !exists
}

// execLauncher starts the broker in its own session so it outlives the
// supervisor's process, with stdio detached from ours. The child is
// released, never joined.
type execLauncher struct{}

func (execLauncher) Start(executable string, args ...string) error {
	cmd := exec.Command(executable, args...)
	// Stdout/Stderr left nil: os/exec wires them to /dev/null.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
