package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/fgp-tools/fgp/internal/contracts"
	"github.com/fgp-tools/fgp/internal/domain"
)

type fakeRegistry struct {
	services  []string
	reachable map[string]bool
}

func (f *fakeRegistry) List() []string {
	return slices.Clone(f.services)
}

func (f *fakeRegistry) SocketPath(name string) string {
	return "/fgp/" + name + "/daemon.sock"
}

func (f *fakeRegistry) Reachable(name string) bool {
	return f.reachable[name]
}

type fakeDaemon struct {
	healthResp *contracts.DaemonResponse
	healthErr  error
}

func (d *fakeDaemon) Health(_ context.Context) (*contracts.DaemonResponse, error) {
	return d.healthResp, d.healthErr
}

func (d *fakeDaemon) Methods(_ context.Context) (*contracts.DaemonResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *fakeDaemon) Call(_ context.Context, _ string, _ json.RawMessage) (*contracts.DaemonResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeDialer struct {
	daemons map[string]*fakeDaemon
	dialErr map[string]error
}

func (f *fakeDialer) Dial(socketPath string) (contracts.DaemonClient, error) {
	if err := f.dialErr[socketPath]; err != nil {
		return nil, err
	}
	if d, ok := f.daemons[socketPath]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("connection refused: %s", socketPath)
}

type fakeLifecycle struct {
	startErr error
	started  []string
}

func (f *fakeLifecycle) Start(name string) error {
	f.started = append(f.started, name)
	return f.startErr
}

func (f *fakeLifecycle) Stop(_ string) error {
	return nil
}

type notification struct {
	Title   string
	Message string
}

type fakeNotifier struct {
	sent []notification
}

func (f *fakeNotifier) Notify(title string, message string) {
	f.sent = append(f.sent, notification{Title: title, Message: message})
}

// harness drives a supervisor against a single simulated service whose
// observed state is set per pass.
type harness struct {
	sup      *Supervisor
	reg      *fakeRegistry
	dialer   *fakeDialer
	lc       *fakeLifecycle
	notifier *fakeNotifier
	events   *strings.Builder
	slept    []time.Duration
}

func newHarness(t *testing.T, cfg Config, services ...string) *harness {
	t.Helper()

	h := &harness{
		reg:      &fakeRegistry{services: services, reachable: map[string]bool{}},
		dialer:   &fakeDialer{daemons: map[string]*fakeDaemon{}, dialErr: map[string]error{}},
		lc:       &fakeLifecycle{},
		notifier: &fakeNotifier{},
		events:   &strings.Builder{},
	}

	sup, err := NewSupervisor(hclog.NewNullLogger(), h.reg, h.dialer, h.lc, h.notifier, cfg)
	require.NoError(t, err)

	sup.out = h.events
	sup.sleep = func(d time.Duration) { h.slept = append(h.slept, d) }
	h.sup = sup

	return h
}

// set rigs the fakes so the next pass observes the given state.
func (h *harness) set(name string, state domain.ServiceState) {
	socket := h.reg.SocketPath(name)
	delete(h.dialer.dialErr, socket)

	switch state {
	case domain.StateStopped:
		h.reg.reachable[name] = false
	case domain.StateError:
		h.reg.reachable[name] = true
		h.dialer.dialErr[socket] = fmt.Errorf("connection reset")
	case domain.StateUnhealthy:
		h.reg.reachable[name] = true
		h.dialer.daemons[socket] = &fakeDaemon{
			healthResp: &contracts.DaemonResponse{OK: true, Result: json.RawMessage(`{"status":"unhealthy"}`)},
		}
	case domain.StateRunning:
		h.reg.reachable[name] = true
		h.dialer.daemons[socket] = &fakeDaemon{
			healthResp: &contracts.DaemonResponse{OK: true, Result: json.RawMessage(`{"status":"healthy"}`)},
		}
	}
}

func (h *harness) pass() {
	h.sup.Pass(context.Background())
}

func defaultConfig() Config {
	return Config{
		Interval:     time.Second,
		AutoRestart:  true,
		MaxRestarts:  3,
		RestartDelay: 2 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  defaultConfig(),
		},
		{
			name:    "zero interval",
			cfg:     Config{Interval: 0},
			wantErr: "polling interval must be positive",
		},
		{
			name:    "negative restart delay",
			cfg:     Config{Interval: time.Second, RestartDelay: -time.Second},
			wantErr: "restart delay cannot be negative",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestSupervisor_FirstObservationIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateStopped)
	h.pass()

	require.Empty(t, h.notifier.sent)
	require.Empty(t, h.lc.started)
	require.Empty(t, h.events.String())
}

func TestSupervisor_UnchangedStateIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()
	h.pass()
	h.pass()

	require.Empty(t, h.notifier.sent)
	require.Empty(t, h.lc.started)
}

func TestSupervisor_CrashNotifiesAndRestarts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateError)
	h.pass()

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, "FGP Service Crashed", h.notifier.sent[0].Title)
	require.Equal(t, "gmail daemon crashed", h.notifier.sent[0].Message)

	require.Equal(t, []string{"gmail"}, h.lc.started)
	require.Equal(t, []time.Duration{2 * time.Second}, h.slept)
	require.Contains(t, h.events.String(), "restarting gmail (attempt 1/3)")
}

func TestSupervisor_UnexpectedStopNotifiesAndRestarts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateStopped)
	h.pass()

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, "FGP Service Stopped", h.notifier.sent[0].Title)
	require.Equal(t, "gmail daemon stopped unexpectedly", h.notifier.sent[0].Message)
	require.Equal(t, []string{"gmail"}, h.lc.started)
}

func TestSupervisor_UnhealthyNotifiesWithoutRestart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateUnhealthy)
	h.pass()

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, "FGP Service Unhealthy", h.notifier.sent[0].Title)
	require.Empty(t, h.lc.started)

	h.set("gmail", domain.StateRunning)
	h.pass()

	require.Len(t, h.notifier.sent, 2)
	require.Equal(t, "FGP Service Recovered", h.notifier.sent[1].Title)
	require.Empty(t, h.lc.started)
}

func TestSupervisor_ObscureTransitionLogsWithoutNotification(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateError)
	h.pass()

	h.set("gmail", domain.StateUnhealthy)
	h.pass()

	require.Empty(t, h.notifier.sent)
	require.Empty(t, h.lc.started)
	require.Contains(t, h.events.String(), "gmail state: error -> unhealthy")
}

func TestSupervisor_AutoRestartDisabled(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.AutoRestart = false

	h := newHarness(t, cfg, "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateError)
	h.pass()

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, "FGP Service Crashed", h.notifier.sent[0].Title)
	require.Empty(t, h.lc.started)
	require.Empty(t, h.slept)
}

func TestSupervisor_RestartLimit(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.MaxRestarts = 1

	h := newHarness(t, cfg, "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	// One attempt already burned without an intervening recovery.
	h.sup.attempts["gmail"] = 1

	h.set("gmail", domain.StateError)
	h.pass()

	require.Empty(t, h.lc.started)
	require.Empty(t, h.slept)
	require.Len(t, h.notifier.sent, 2)
	require.Equal(t, "FGP Service Crashed", h.notifier.sent[0].Title)
	require.Equal(t, "FGP Restart Limit Reached", h.notifier.sent[1].Title)
	require.Equal(t, "gmail exceeded 1 restart attempts", h.notifier.sent[1].Message)
}

func TestSupervisor_RecoveryResetsRestartCounter(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.MaxRestarts = 1

	h := newHarness(t, cfg, "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateError)
	h.pass()
	require.Equal(t, []string{"gmail"}, h.lc.started)

	h.set("gmail", domain.StateRunning)
	h.pass()

	// Counter was reset on recovery, so the next crash restarts again.
	h.set("gmail", domain.StateError)
	h.pass()

	require.Equal(t, []string{"gmail", "gmail"}, h.lc.started)
	for _, n := range h.notifier.sent {
		require.NotEqual(t, "FGP Restart Limit Reached", n.Title)
	}
}

func TestSupervisor_UnlimitedRestarts(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.MaxRestarts = 0

	h := newHarness(t, cfg, "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.sup.attempts["gmail"] = 100

	h.set("gmail", domain.StateError)
	h.pass()

	require.Equal(t, []string{"gmail"}, h.lc.started)
	require.Contains(t, h.events.String(), "restarting gmail (attempt 101)")
}

func TestSupervisor_RestartFailureNotifies(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.lc.startErr = fmt.Errorf("manifest missing")

	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("gmail", domain.StateError)
	h.pass()

	require.Len(t, h.notifier.sent, 2)
	require.Equal(t, "FGP Restart Failed", h.notifier.sent[1].Title)
	require.Equal(t, "Failed to restart gmail: manifest missing", h.notifier.sent[1].Message)
}

func TestSupervisor_PassCoversAllServices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "calendar", "gmail")
	h.set("calendar", domain.StateRunning)
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.set("calendar", domain.StateError)
	h.set("gmail", domain.StateStopped)
	h.pass()

	require.Len(t, h.notifier.sent, 2)
	require.Equal(t, "FGP Service Crashed", h.notifier.sent[0].Title)
	require.Equal(t, "FGP Service Stopped", h.notifier.sent[1].Title)
	require.ElementsMatch(t, []string{"calendar", "gmail"}, h.lc.started)
}

func TestSupervisor_Reset(t *testing.T) {
	t.Parallel()

	h := newHarness(t, defaultConfig(), "gmail")
	h.set("gmail", domain.StateRunning)
	h.pass()

	h.sup.Reset("gmail")

	// After a reset the next observation is a first sighting again.
	h.set("gmail", domain.StateError)
	h.pass()

	require.Empty(t, h.notifier.sent)
	require.Empty(t, h.lc.started)
}

func TestSupervisor_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Interval = 10 * time.Millisecond

	h := newHarness(t, cfg, "gmail")
	h.set("gmail", domain.StateRunning)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.sup.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop on context cancellation")
	}
}

func TestNewSupervisor_Validation(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{reachable: map[string]bool{}}
	dialer := &fakeDialer{daemons: map[string]*fakeDaemon{}, dialErr: map[string]error{}}
	lc := &fakeLifecycle{}
	notifier := &fakeNotifier{}
	logger := hclog.NewNullLogger()

	tests := []struct {
		name    string
		build   func() (*Supervisor, error)
		wantErr string
	}{
		{
			name: "nil logger",
			build: func() (*Supervisor, error) {
				return NewSupervisor(nil, reg, dialer, lc, notifier, defaultConfig())
			},
			wantErr: "logger cannot be nil",
		},
		{
			name: "nil registry",
			build: func() (*Supervisor, error) {
				return NewSupervisor(logger, nil, dialer, lc, notifier, defaultConfig())
			},
			wantErr: "registry cannot be nil",
		},
		{
			name: "nil notifier",
			build: func() (*Supervisor, error) {
				return NewSupervisor(logger, reg, dialer, lc, nil, defaultConfig())
			},
			wantErr: "notifier cannot be nil",
		},
		{
			name: "invalid config",
			build: func() (*Supervisor, error) {
				return NewSupervisor(logger, reg, dialer, lc, notifier, Config{})
			},
			wantErr: "invalid watchdog config",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := tc.build()
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
