package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all opkit daemon configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath       string `json:"db_path"`
	LogLevel     string `json:"log_level"`
	TickCron     string `json:"tick_cron"`
	SnapshotName string `json:"snapshot_name"`
	MCP          bool   `json:"mcp"`
}

func defaultConfig() Config {
	return Config{
		DBPath:       filepath.Join(opkitDir(), "opkit.db"),
		LogLevel:     "info",
		TickCron:     "* * * * *",
		SnapshotName: "default",
		MCP:          true,
	}
}

func opkitDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".opkit"
	}
	return filepath.Join(home, ".opkit")
}

func settingsPath() string {
	return filepath.Join(opkitDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("OPKIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OPKIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OPKIT_TICK_CRON"); v != "" {
		cfg.TickCron = v
	}
	if v := os.Getenv("OPKIT_SNAPSHOT_NAME"); v != "" {
		cfg.SnapshotName = v
	}
	if v := os.Getenv("OPKIT_MCP"); v != "" {
		cfg.MCP = v == "true" || v == "1"
	}

	return cfg
}
