// Package process manages the lifecycle of the target desktop application:
// detect by name, terminate gracefully with a bounded wait, launch.
// Platform specifics live behind the Controller interface so the engine
// can be tested against a fake.
package process

import (
	"fmt"
	"os/exec"
	"time"
)

// Controller manages the target application's process lifecycle.
// Terminate and Launch are best-effort: callers treat failures as
// warnings, not fatal errors.
type Controller interface {
	IsRunning(app string) bool
	Terminate(app string) error
	Launch(app string) error
}

// Injectable for testing.
var (
	runCommand = func(name string, args ...string) error {
		return exec.Command(name, args...).Run()
	}
	commandSucceeds = func(name string, args ...string) bool {
		return exec.Command(name, args...).Run() == nil
	}
	sleep = time.Sleep
)

// DarwinController controls applications on macOS via pgrep, pkill, and
// the open command.
type DarwinController struct {
	// PollInterval is the sleep between liveness checks after a graceful
	// terminate. Zero means the default of 500ms.
	PollInterval time.Duration
	// MaxPolls bounds the number of liveness checks before escalating to
	// a forceful kill. Zero means the default of 5.
	MaxPolls int
}

func (c *DarwinController) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return 500 * time.Millisecond
}

func (c *DarwinController) maxPolls() int {
	if c.MaxPolls > 0 {
		return c.MaxPolls
	}
	return 5
}

// IsRunning reports whether any process with the exact name is alive.
func (c *DarwinController) IsRunning(app string) bool {
	return commandSucceeds("pgrep", "-x", app)
}

// Terminate sends SIGTERM to all processes matching app, polls for them
// to exit, and escalates to SIGKILL if they outlive the poll budget.
// An error is returned only when the forceful kill itself fails to land.
func (c *DarwinController) Terminate(app string) error {
	if !c.IsRunning(app) {
		return nil
	}

	// pkill exits non-zero when nothing matched; the poll loop below
	// decides whether that matters.
	runCommand("pkill", "-x", app)

	for i := 0; i < c.maxPolls(); i++ {
		sleep(c.pollInterval())
		if !c.IsRunning(app) {
			return nil
		}
	}

	if err := runCommand("pkill", "-9", "-x", app); err != nil && c.IsRunning(app) {
		return fmt.Errorf("failed to force-kill %s: %w", app, err)
	}
	return nil
}

// Launch opens the application. A no-op if it is already running.
func (c *DarwinController) Launch(app string) error {
	if c.IsRunning(app) {
		return nil
	}
	if err := runCommand("open", "-a", app); err != nil {
		return fmt.Errorf("failed to launch %s: %w", app, err)
	}
	return nil
}
