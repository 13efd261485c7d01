// Package paths resolves the on-disk layout of the mcpswap configuration
// tree and the default location of the managed application's config file.
package paths

import (
	"os"
	"path/filepath"
)

// Root returns the mcpswap configuration directory, ~/.mcpswap by default.
// The MCPSWAP_DIR environment variable overrides it.
func Root() (string, error) {
	if dir := os.Getenv("MCPSWAP_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mcpswap"), nil
}

// ServersDir returns the directory holding server definition files.
func ServersDir(root string) string {
	return filepath.Join(root, "servers")
}

// ProfilesDir returns the directory holding profile files.
func ProfilesDir(root string) string {
	return filepath.Join(root, "profiles")
}

// SnapshotPath returns the path of the pre-activation snapshot document.
func SnapshotPath(root string) string {
	return filepath.Join(root, "last.json")
}

// MarkerPath returns the path of the loaded-profile marker file.
func MarkerPath(root string) string {
	return filepath.Join(root, "loaded")
}

// DotenvPath returns the path of the optional .env file.
func DotenvPath(root string) string {
	return filepath.Join(root, ".env")
}

// SettingsPath returns the path of the optional settings file.
func SettingsPath(root string) string {
	return filepath.Join(root, "settings.yaml")
}

// LogPath returns the path of the persistent activation log.
func LogPath(root string) string {
	return filepath.Join(root, "mcpswap.log")
}

// DefaultTargetConfig returns the default path of the managed application's
// JSON config file (Claude Desktop on macOS).
func DefaultTargetConfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
}
