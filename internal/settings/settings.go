// Package settings loads the optional settings.yaml from the mcpswap
// configuration directory. Every field has a working default so the file
// only exists when the user wants to override something.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mcpswap/internal/paths"
)

// Settings holds user-tunable configuration.
type Settings struct {
	// TargetConfig is the managed application's JSON config file.
	TargetConfig string `yaml:"target_config,omitempty"`
	// AppName is the process/application name used for restart.
	AppName string `yaml:"app_name,omitempty"`
	// Editor overrides $EDITOR for the edit subcommands.
	Editor string `yaml:"editor,omitempty"`
	// LogLevel is the terminal log level (debug/info/warn/error).
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the settings used when no settings file exists.
func Default() *Settings {
	return &Settings{
		TargetConfig: paths.DefaultTargetConfig(),
		AppName:      "Claude",
		LogLevel:     "info",
	}
}

// Load reads settings from path, layering file values over the defaults.
// A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if file.TargetConfig != "" {
		s.TargetConfig = file.TargetConfig
	}
	if file.AppName != "" {
		s.AppName = file.AppName
	}
	if file.Editor != "" {
		s.Editor = file.Editor
	}
	if file.LogLevel != "" {
		s.LogLevel = file.LogLevel
	}
	return s, nil
}

// ResolveEditor returns the editor to use: the settings value, then
// $EDITOR, then vi.
func (s *Settings) ResolveEditor() string {
	if s.Editor != "" {
		return s.Editor
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}
