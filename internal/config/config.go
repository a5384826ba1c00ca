// Package config holds process configuration populated by the command line
// (cobra/viper) and the interaction settings loaded from a TOML file.
package config

import "time"

// Process-wide values bound to command line flags, environment variables
// (COASTERS_*) and the optional config file.
var (
	ConfigFile       string
	DataDir          string
	WorldName        string
	SettingsFile     string
	LogLevel         string
	LogFormat        string
	LogFilter        string
	AutosaveInterval time.Duration
	TickRate         time.Duration
)

// Defaults for process configuration.
const (
	DefaultDataDir          = "./coasters"
	DefaultWorldName        = "world"
	DefaultSettingsFile     = "settings.toml"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultAutosaveInterval = 30 * time.Second
	DefaultTickRate         = 50 * time.Millisecond
)
