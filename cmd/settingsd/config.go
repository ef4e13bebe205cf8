package main

import (
	"os"
	"path/filepath"

	"github.com/danmuck/fwsettings/internal/config"
	logs "github.com/danmuck/fwsettings/internal/logging"
)

const defaultConfigPath = "cmd/settingsd/config.toml"

// loadConfig falls back to the checked-in example when the default path has
// not been generated yet.
func loadConfig(path string) (config.DaemonConfig, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(filepath.Dir(path), "ex.config.toml")
		}
	}
	return config.LoadDaemonConfig(path)
}

func loggingConfig(cfg config.DaemonConfig) logs.Config {
	out := logs.DefaultConfig()
	if lvl, ok := logs.ParseLevel(cfg.LogLevel); ok {
		out.Level = lvl
	}
	return out
}
