// Package monitor implements the health watchdog: a polling supervisor that
// tracks per-service state, notifies on meaningful transitions and applies a
// bounded auto-restart policy to crashed services.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/domain"
)

// Config is the watchdog policy, fixed at startup.
type Config struct {
	// Interval between polling passes.
	Interval time.Duration

	// AutoRestart enables the restart policy.
	AutoRestart bool

	// MaxRestarts caps restart attempts per service; 0 means unlimited.
	MaxRestarts uint

	// RestartDelay is the pause before each restart attempt.
	RestartDelay time.Duration
}

// Validate checks the policy for impossible settings.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if c.RestartDelay < 0 {
		return fmt.Errorf("restart delay cannot be negative")
	}
	return nil
}

// Supervisor owns the per-service state history and restart counters.
// It is not safe for concurrent use; Run drives it from a single goroutine.
type Supervisor struct {
	logger    hclog.Logger
	registry  contracts.ServiceRegistry
	dialer    contracts.DaemonDialer
	lifecycle contracts.Lifecycle
	notifier  contracts.Notifier
	cfg       Config

	states   map[string]domain.ServiceState
	attempts map[string]uint

	// out receives the human-readable event log; sleep is swapped in tests.
	out   io.Writer
	sleep func(time.Duration)
}

// NewSupervisor creates a watchdog with empty state history.
func NewSupervisor(
	logger hclog.Logger,
	reg contracts.ServiceRegistry,
	dialer contracts.DaemonDialer,
	lc contracts.Lifecycle,
	notifier contracts.Notifier,
	cfg Config,
) (*Supervisor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}
	if lc == nil {
		return nil, fmt.Errorf("lifecycle cannot be nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watchdog config: %w", err)
	}

	return &Supervisor{
		logger:    logger.Named("monitor"),
		registry:  reg,
		dialer:    dialer,
		lifecycle: lc,
		notifier:  notifier,
		cfg:       cfg,
		states:    make(map[string]domain.ServiceState),
		attempts:  make(map[string]uint),
		out:       os.Stdout,
		sleep:     time.Sleep,
	}, nil
}

// Run polls until the context is canceled. Passes never overlap: a pass that
// outlasts the interval simply delays the next one.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Pass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping health watchdog")
			return nil
		case <-ticker.C:
			s.Pass(ctx)
		}
	}
}

// Pass runs one polling pass, visiting every registry service sequentially.
// Failures are confined to the affected service; a pass never aborts.
func (s *Supervisor) Pass(ctx context.Context) {
	for _, name := range s.registry.List() {
		s.observe(name, s.stateOf(ctx, name))
	}
}

// Reset clears the recorded state and restart counter for one service.
func (s *Supervisor) Reset(name string) {
	delete(s.states, name)
	delete(s.attempts, name)
}

// stateOf computes the current state of one service.
func (s *Supervisor) stateOf(ctx context.Context, name string) domain.ServiceState {
	if !s.registry.Reachable(name) {
		return domain.StateStopped
	}

	client, err := s.dialer.Dial(s.registry.SocketPath(name))
	if err != nil {
		return domain.StateError
	}

	resp, err := client.Health(ctx)

	return domain.ClassifyHealth(resp, err)
}

// observe records the latest state for a service and reacts to a transition.
func (s *Supervisor) observe(name string, current domain.ServiceState) {
	prev, seen := s.states[name]
	s.states[name] = current

	if !seen || prev == current {
		return
	}

	s.handleTransition(name, prev, current)

	if current == domain.StateRunning {
		delete(s.attempts, name)
	}
}

// handleTransition notifies for table entries and logs everything else.
func (s *Supervisor) handleTransition(name string, prev domain.ServiceState, current domain.ServiceState) {
	t, notable := transitions[transitionKey{prev, current}]
	if !notable {
		s.logger.Info("service state changed", "service", name, "previous", prev, "current", current)
		s.eventf("%s state: %s -> %s", name, prev, current)
		return
	}

	message := fmt.Sprintf(t.Message, name)
	s.logger.Warn("service transition", "service", name, "previous", prev, "current", current)
	s.eventf("%s", message)
	s.notifier.Notify(t.Title, message)

	if t.RestartEligible && s.cfg.AutoRestart {
		s.attemptRestart(name)
	}
}

// attemptRestart applies the bounded restart policy to one crashed service.
func (s *Supervisor) attemptRestart(name string) {
	s.attempts[name]++
	attempt := s.attempts[name]

	if s.cfg.MaxRestarts > 0 && attempt > s.cfg.MaxRestarts {
		s.logger.Warn("restart refused, limit reached",
			"service", name,
			"attempts", attempt,
			"max", s.cfg.MaxRestarts,
		)
		s.eventf("%s exceeded max restarts (%d), not restarting", name, s.cfg.MaxRestarts)
		s.notifier.Notify(
			"FGP Restart Limit Reached",
			fmt.Sprintf("%s exceeded %d restart attempts", name, s.cfg.MaxRestarts),
		)
		return
	}

	if s.cfg.MaxRestarts > 0 {
		s.eventf("restarting %s (attempt %d/%d)", name, attempt, s.cfg.MaxRestarts)
	} else {
		s.eventf("restarting %s (attempt %d)", name, attempt)
	}
	s.logger.Info("restarting service", "service", name, "attempt", attempt)

	s.sleep(s.cfg.RestartDelay)

	if err := s.lifecycle.Start(name); err != nil {
		s.logger.Error("restart failed", "service", name, "error", err)
		s.eventf("failed to restart %s: %s", name, err)
		s.notifier.Notify("FGP Restart Failed", fmt.Sprintf("Failed to restart %s: %s", name, err))
		return
	}

	s.eventf("%s restart initiated", name)
}

// eventf prints one timestamped line to the human-readable event log.
func (s *Supervisor) eventf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, "[%s] %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}
