package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "spoctl"
	defaultConfigFile    = "config.yaml"
	defaultTokenFile     = "tokens.json"
)

func DefaultConfigPath() string {
	if env := os.Getenv("SPOCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".spoctl", defaultConfigFile)
}

// DefaultTokenPath places the token cache next to the config file so that
// SPOCTL_CONFIG also isolates cached tokens.
func DefaultTokenPath() string {
	if env := os.Getenv("SPOCTL_TOKEN_CACHE"); env != "" {
		return env
	}
	if env := os.Getenv("SPOCTL_CONFIG"); env != "" {
		return filepath.Join(filepath.Dir(env), defaultTokenFile)
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultTokenFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".spoctl", defaultTokenFile)
}
