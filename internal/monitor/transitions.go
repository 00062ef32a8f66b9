package monitor

import (
	"github.com/fgp-tools/fgp/internal/domain"
)

// transitionKey identifies one (previous, current) state pair.
type transitionKey struct {
	prev    domain.ServiceState
	current domain.ServiceState
}

// transition describes how the watchdog reacts to a state change.
type transition struct {
	// Title is the notification title.
	Title string

	// Message is the notification body; %s is the service name.
	Message string

	// RestartEligible marks transitions that trigger the restart policy.
	RestartEligible bool
}

// transitions is the full set of state changes that warrant a notification.
// Pairs absent from this table are logged only.
var transitions = map[transitionKey]transition{
	{domain.StateRunning, domain.StateError}: {
		Title:           "FGP Service Crashed",
		Message:         "%s daemon crashed",
		RestartEligible: true,
	},
	{domain.StateRunning, domain.StateStopped}: {
		Title:           "FGP Service Stopped",
		Message:         "%s daemon stopped unexpectedly",
		RestartEligible: true,
	},
	{domain.StateRunning, domain.StateUnhealthy}: {
		Title:   "FGP Service Unhealthy",
		Message: "%s daemon is unhealthy",
	},
	{domain.StateUnhealthy, domain.StateRunning}: {
		Title:   "FGP Service Recovered",
		Message: "%s daemon recovered",
	},
	{domain.StateError, domain.StateRunning}: {
		Title:   "FGP Service Started",
		Message: "%s daemon is now running",
	},
	{domain.StateStopped, domain.StateRunning}: {
		Title:   "FGP Service Started",
		Message: "%s daemon started",
	},
}
