// Package lifecycle starts and stops installed FGP service daemons.
//
// Each service directory carries a service.toml manifest naming the daemon
// executable. Started daemons are detached from the CLI process; the pid is
// recorded next to the socket so a wedged daemon can still be stopped.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/errors"
	"github.com/fgp-tools/fgp/internal/perms"
	"github.com/fgp-tools/fgp/internal/registry"
)

const (
	// stopTimeout bounds how long Stop waits for a daemon to honor the stop RPC
	// before falling back to a signal.
	stopTimeout = 5 * time.Second

	// logFileName is where a started daemon's combined output goes, inside the
	// service directory.
	logFileName = "daemon.log"
)

// Manager implements contracts.Lifecycle on top of the directory registry.
type Manager struct {
	logger   hclog.Logger
	registry *registry.DirRegistry
	dialer   contracts.DaemonDialer
}

// NewManager creates a lifecycle manager.
func NewManager(logger hclog.Logger, reg *registry.DirRegistry, dialer contracts.DaemonDialer) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}

	return &Manager{
		logger:   logger.Named("lifecycle"),
		registry: reg,
		dialer:   dialer,
	}, nil
}

// Start launches the named service's daemon as a detached process.
// Starting an already-running service is a no-op.
func (m *Manager) Start(name string) error {
	serviceDir := m.registry.ServiceDir(name)
	if _, err := os.Stat(serviceDir); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrServiceNotFound, name)
	}

	if m.registry.Reachable(name) {
		m.logger.Debug("service already running", "service", name)
		return nil
	}

	manifest, err := LoadManifest(m.registry.ManifestPath(name))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrLifecycleFailed, name, err)
	}

	logFile, err := os.OpenFile(
		filepath.Join(serviceDir, logFileName),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		perms.RegularFile,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to open daemon log for '%s': %w", errors.ErrLifecycleFailed, name, err)
	}
	defer func() {
		_ = logFile.Close()
	}()

	cmd := exec.Command(manifest.Command, manifest.Args...)
	cmd.Dir = serviceDir
	cmd.Env = append(os.Environ(), manifest.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	m.logger.Info("starting service daemon", "service", name, "command", manifest.Command, "args", manifest.Args)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start daemon for '%s': %w", errors.ErrLifecycleFailed, name, err)
	}

	pid := cmd.Process.Pid
	if err := m.writePID(name, pid); err != nil {
		m.logger.Warn("failed to write pid file", "service", name, "pid", pid, "error", err)
	}

	// Detach; the daemon outlives this process.
	if err := cmd.Process.Release(); err != nil {
		m.logger.Warn("failed to release daemon process", "service", name, "error", err)
	}

	m.logger.Info("service daemon started", "service", name, "pid", pid)

	return nil
}

// Stop shuts down the named service's daemon. It prefers the daemon's stop
// RPC and falls back to SIGTERM via the recorded pid.
func (m *Manager) Stop(name string) error {
	if _, err := os.Stat(m.registry.ServiceDir(name)); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrServiceNotFound, name)
	}

	stopped := false

	if m.registry.Reachable(name) {
		stopped = m.stopViaRPC(name)
	}

	if !stopped {
		pid, err := m.readPID(name)
		if err == nil {
			m.logger.Info("stopping service daemon via signal", "service", name, "pid", pid)
			if err := syscall.Kill(pid, syscall.SIGTERM); err == nil || err == syscall.ESRCH {
				stopped = true
			}
		}
	}

	if !stopped {
		return fmt.Errorf("%w: '%s' is not running", errors.ErrLifecycleFailed, name)
	}

	m.cleanup(name)

	return nil
}

// stopViaRPC asks the daemon to shut itself down and waits for its socket to
// disappear. The connection often drops before a response arrives, which
// still counts as success once the socket goes away.
func (m *Manager) stopViaRPC(name string) bool {
	client, err := m.dialer.Dial(m.registry.SocketPath(name))
	if err != nil {
		m.logger.Debug("could not connect for stop", "service", name, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if _, err := client.Call(ctx, "stop", nil); err != nil {
		m.logger.Debug("stop call did not complete cleanly", "service", name, "error", err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !m.registry.Reachable(name) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}

	return !m.registry.Reachable(name)
}

func (m *Manager) writePID(name string, pid int) error {
	return os.WriteFile(m.registry.PIDPath(name), []byte(strconv.Itoa(pid)+"\n"), perms.RegularFile)
}

func (m *Manager) readPID(name string) (int, error) {
	data, err := os.ReadFile(m.registry.PIDPath(name))
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file for '%s': %w", name, err)
	}

	return pid, nil
}

// cleanup removes stale socket and pid files after a stop.
func (m *Manager) cleanup(name string) {
	for _, path := range []string{m.registry.SocketPath(name), m.registry.PIDPath(name)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.Debug("failed to remove stale file", "service", name, "path", path, "error", err)
		}
	}
}
