package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/promptstack/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Theme      string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Credentials are read from the environment in the Before hook
	Credentials config.Credentials
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "promptstack", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "promptstack")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/promptstack/promptstack.log
// On Linux: $XDG_STATE_HOME/promptstack/promptstack.log (defaults to ~/.local/state/promptstack/promptstack.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "promptstack", "promptstack.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "promptstack", "promptstack.log")
	}

	return filepath.Join(home, ".local", "state", "promptstack", "promptstack.log")
}
