package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrTokenMissing          = errors.New("discord token is not set")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Discord    Discord    `koanf:"discord"`
	Moderation Moderation `koanf:"moderation"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Port of the metrics server (0 disables it).
	MetricsPort int `koanf:"metrics_port"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// Moderation contains configuration of the moderation engine.
type Moderation struct {
	// Directory holding one <guild_id>.toml document per guild.
	GuildConfigDir string `koanf:"guild_config_dir"`
	// Path of the SQLite database for notes and warnings.
	ModlogPath string `koanf:"modlog_path"`
	// Reload guild documents when they change on disk.
	WatchConfigs bool `koanf:"watch_configs"`
}

// defaults are applied before the config file is loaded.
var defaults = map[string]any{
	"debug.log_level":             "info",
	"debug.max_logs_to_keep":      10,
	"debug.max_log_lines":         10000,
	"moderation.guild_config_dir": "guilds",
	"moderation.modlog_path":      "modlog.db",
	"moderation.watch_configs":    true,
}

// SearchPaths returns the directories searched for bot.toml, in order.
func SearchPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	}, nil
}

// LoadConfig loads bot.toml from the first search path containing it.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	paths, err := SearchPaths()
	if err != nil {
		return nil, "", err
	}

	for _, path := range paths {
		cfg, err := LoadFile(path + "/bot.toml")
		if errors.Is(err, ErrConfigFileNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	return nil, "", fmt.Errorf("%w: bot.toml", ErrConfigFileNotFound)
}

// LoadFile loads and validates a single config file.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("error applying defaults: %w", err)
		}
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the settings needed to connect to Discord.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrTokenMissing
	}
	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: bot.toml", ErrConfigVersionMissing)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: bot.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/warden/tree/%s/config/bot.toml",
			ErrConfigVersionMismatch,
			current,
			expected,
			RepositoryVersion,
		)
	}

	return nil
}
