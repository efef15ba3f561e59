package config

import (
	"os"
	"path/filepath"
)

const (
	appDirName     = "diffsound"
	configFileName = "config.yaml"
	soundsDirName  = "sounds"
	logDirName     = "logs"
)

// appDir returns <user config dir>/diffsound, or a relative fallback
func appDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "." + appDirName
	}
	return filepath.Join(base, appDirName)
}

// DefaultConfigPath is where the settings file lives when --config is not given
func DefaultConfigPath() string {
	return filepath.Join(appDir(), configFileName)
}

// DefaultSoundsDir is the sounds root when soundsDir is not configured
func DefaultSoundsDir() string {
	return filepath.Join(appDir(), soundsDirName)
}

// DefaultLogDir is where debug logs are written
func DefaultLogDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(appDir(), logDirName)
	}
	return filepath.Join(base, appDirName, logDirName)
}
