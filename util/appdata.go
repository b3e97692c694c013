// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppDataDir returns an operating-system-appropriate home directory for
// an application of the given name, matching the layout btcd/btcwallet
// callers expect: %LOCALAPPDATA%\Appname on Windows,
// ~/Library/Application Support/Appname on macOS, ~/appname on Plan 9,
// and $XDG_DATA_HOME/appname (falling back to ~/.appname) elsewhere,
// where Appname has its first letter upper-cased and appname is all
// lower-case. This
// package's own source file defining the helper did not survive
// retrieval, so it is reconstructed here from that well-known
// ecosystem convention rather than copied.
//
// If roaming is true on Windows, %APPDATA% is used instead of
// %LOCALAPPDATA%; it has no effect on other platforms.
func AppDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}
	appName = strings.TrimPrefix(appName, ".")
	appNameLower := strings.ToLower(appName)
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}

	switch runtime.GOOS {
	case "windows":
		envKey := "LOCALAPPDATA"
		if roaming {
			envKey = "APPDATA"
		}
		if appData := os.Getenv(envKey); appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
		return filepath.Join(homeDir, appNameUpper)

	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}

	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appNameLower)
		}

	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appNameLower)
		}
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	return "." + appNameLower
}
