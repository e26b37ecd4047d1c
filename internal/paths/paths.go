// Package paths resolves the configuration and data directories used by the
// linkshelf CLI and server.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the platform directories.
const AppName = "linkshelf"

// CWD-relative directory names. A directory with one of these names in the
// working directory is preferred over the platform default.
const (
	DefaultConfigDirName = ".linkshelf"
	DefaultDataDirName   = ".linkshelf-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "LINKSHELF_CONFIG_DIR"
	EnvDataDir   = "LINKSHELF_DATA_DIR"
)

// File names inside the config directory.
const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// xdgDir returns $<xdgVar>/linkshelf on Linux, falling back to
// ~/<fallback...>/linkshelf. Other platforms use os.UserConfigDir.
func xdgDir(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/linkshelf (fallback ~/.config/linkshelf)
// macOS:   ~/Library/Application Support/linkshelf
// Windows: %APPDATA%/linkshelf
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/linkshelf (fallback ~/.local/share/linkshelf)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// localDir returns <cwd>/name when it exists as a directory.
func localDir(name string) (string, bool) {
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", false
	}
	p := filepath.Join(cwd, name)
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return p, true
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > LINKSHELF_CONFIG_DIR > ./.linkshelf (if present)
// > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	if p, ok := localDir(DefaultConfigDirName); ok {
		return p, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > data_dir from config > LINKSHELF_DATA_DIR > ./.linkshelf-db (if
// present) > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	if p, ok := localDir(DefaultDataDirName); ok {
		return p, nil
	}
	return DefaultDataDir()
}

// ConfigFile returns the path of config.yaml inside dir.
func ConfigFile(dir string) string { return filepath.Join(dir, ConfigFileName) }

// EnvFiles returns the .env files to load, most specific first: one in the
// working directory and one in the config directory. Files that do not
// exist are left out.
func EnvFiles(configDir string) []string {
	var out []string
	candidates := []string{EnvFileName, filepath.Join(configDir, EnvFileName)}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			out = append(out, c)
		}
	}
	return out
}
