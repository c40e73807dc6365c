// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package xdg resolves the XDG Base Directory locations used by hextract.
// Each directory falls back to its traditional location under the home
// directory when the XDG variable is unset, and is created with private
// permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName names the per-application subdirectory.
const AppName = "hextract"

// ConfigDir returns the config directory, ~/.config/hextract by default.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the state directory, ~/.local/state/hextract by default.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", ".local", "state")
}

// DataDir returns the data directory where reports are written,
// ~/.local/share/hextract by default.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", ".local", "share")
}

func resolve(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
