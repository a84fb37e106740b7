// Package ospath provides discovery of OS-dependent paths.
package ospath

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "streamvault"

// ConfigDir returns the directory where configuration data (possibly roaming) needs to be stored.
func ConfigDir() string {
	d, err := os.UserConfigDir()
	if err != nil {
		d = os.TempDir()
	}

	return filepath.Join(d, appDirName)
}

// LogsDir returns the directory where per-user logs should be written.
func LogsDir() string {
	d, err := os.UserCacheDir()
	if err != nil {
		d = os.TempDir()
	}

	return filepath.Join(d, appDirName, "logs")
}

// ResolveUserFriendlyPath replaces ~ in a path with a home directory.
// Relative paths are resolved against the home directory when relativeToHome is set.
func ResolveUserFriendlyPath(path string, relativeToHome bool) string {
	home, _ := os.UserHomeDir()
	if home != "" && (path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator))) {
		return filepath.Join(home, path[1:])
	}

	if filepath.IsAbs(path) {
		return path
	}

	if relativeToHome {
		return filepath.Join(home, path)
	}

	return path
}
