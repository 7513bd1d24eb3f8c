package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/filter"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
)

type Config struct {
	SessionsRoot string           `toml:"sessions_root"`
	DBPath       string           `toml:"db_path"`
	LogLevel     string           `toml:"log_level"`
	LogJSON      bool             `toml:"log_json"`
	DefaultLevel transcript.Level `toml:"default_level"`
	MaxLineSize  int              `toml:"max_line_size"`
	Filter       FilterConfig     `toml:"filter"`

	Path    string   `toml:"-"` // file the config was read from, if any
	Unknown []string `toml:"-"` // keys present in the file but not understood
}

type FilterConfig struct {
	DropSlashCommands bool     `toml:"drop_slash_commands"`
	DropSystemContent bool     `toml:"drop_system_content"`
	DropMeta          bool     `toml:"drop_meta"`
	DropPrefixes      []string `toml:"drop_prefixes"`
	DropPatterns      []string `toml:"drop_patterns"`
}

// Load reads the config file named by AISA_CONFIG, or
// ~/.config/aisa/config.toml, over the defaults. A missing file is not an
// error.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	cfgPath := getenv("AISA_CONFIG", filepath.Join(home, ".config", "aisa", "config.toml"))
	return load(cfgPath, home)
}

func load(cfgPath, home string) (*Config, error) {
	cfg := defaults(home)

	cfgPath = expandHome(cfgPath, home)
	if _, err := os.Stat(cfgPath); err == nil {
		md, err := toml.DecodeFile(cfgPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		cfg.Path = cfgPath
		for _, k := range md.Undecoded() {
			cfg.Unknown = append(cfg.Unknown, k.String())
		}
	}

	if v := os.Getenv("AISA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// expand ~ in paths
	cfg.SessionsRoot = expandHome(cfg.SessionsRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = jsonl.DefaultMaxLineSize
	}
	return cfg, nil
}

func defaults(home string) *Config {
	return &Config{
		SessionsRoot: filepath.Join(home, ".claude", "projects"),
		DBPath:       filepath.Join(home, ".config", "aisa", "aisa.db"),
		LogLevel:     "info",
		DefaultLevel: transcript.Conversation,
		MaxLineSize:  jsonl.DefaultMaxLineSize,
		Filter: FilterConfig{
			DropSystemContent: true,
			DropMeta:          true,
		},
	}
}

// Rules converts the [filter] table into content filter rules.
func (c *Config) Rules() filter.Rules {
	return filter.Rules{
		DropSlashCommands: c.Filter.DropSlashCommands,
		DropSystemContent: c.Filter.DropSystemContent,
		DropMeta:          c.Filter.DropMeta,
		DropPrefixes:      c.Filter.DropPrefixes,
		DropPatterns:      c.Filter.DropPatterns,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
