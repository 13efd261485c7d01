package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"mcpswap/internal/logger"
	"mcpswap/internal/model"
	"mcpswap/internal/paths"
	"mcpswap/internal/settings"
	"mcpswap/internal/store"
)

// appContext bundles the resolved config root, store, and settings for a
// single command invocation.
type appContext struct {
	Root     string
	Store    *store.Store
	Settings *settings.Settings
}

func newAppContext() (*appContext, error) {
	root, err := paths.Root()
	if err != nil {
		return nil, fmt.Errorf("could not resolve config directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create config directory: %w", err)
	}

	cfg, err := settings.Load(paths.SettingsPath(root))
	if err != nil {
		return nil, err
	}
	return &appContext{Root: root, Store: store.New(root), Settings: cfg}, nil
}

// runEditor is injectable for testing.
var runEditor = func(editor, path string) error {
	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func (c *appContext) openEditor(path string) error {
	editor := c.Settings.ResolveEditor()
	if err := runEditor(editor, path); err != nil {
		return fmt.Errorf("editor %s failed: %w", editor, err)
	}
	return nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// validateName rejects names that would escape the config tree or collide
// with the reserved snapshot name.
func validateName(name string) error {
	if name == model.ReservedSnapshotName {
		return fmt.Errorf("%q is reserved for the rollback snapshot", name)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q: use letters, digits, dot, dash, underscore", name)
	}
	return nil
}

// printAvailable lists stored names as a hint after a not-found error.
func printAvailable(kind string, names []string) {
	if len(names) == 0 {
		fmt.Printf("No %ss defined yet.\n", kind)
		return
	}
	fmt.Printf("Available %ss:\n  %s\n", kind, strings.Join(names, "\n  "))
}

// warnIfUnknownServers logs a warning for profile entries that have no
// stored definition. Activation will fail on them; mutation commands only
// warn so servers can be defined after the profile.
func warnIfUnknownServers(st *store.Store, serverNames []string) {
	for _, name := range serverNames {
		if _, err := st.LoadServer(name); err != nil {
			logger.Warnf("server %q is not defined; activation will fail until it is", name)
		}
	}
}
