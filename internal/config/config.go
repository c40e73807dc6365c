// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads CLI settings from config.toml in the XDG config dir,
// overlaid with HEXTRACT_* environment variables.
// Only non-secret settings belong in the file; the archive DSN may also be
// kept in the OS keychain.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hextract/cli/internal/gateway"
	"hextract/cli/internal/scheduler"
	"hextract/cli/internal/session"
	"hextract/cli/internal/xdg"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "HEXTRACT"
	fileMode   = 0o600
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel  string             `mapstructure:"log_level"`
	LogFile   string             `mapstructure:"log_file"`
	Catalog   string             `mapstructure:"catalog"`
	OutputDir string             `mapstructure:"output_dir"`
	Gateway   GatewayConfig      `mapstructure:"gateway"`
	Run       scheduler.Settings `mapstructure:"run"`
	Session   SessionConfig      `mapstructure:"session"`
	Browser   BrowserConfig      `mapstructure:"browser"`
	Archive   ArchiveConfig      `mapstructure:"archive"`
}

// GatewayConfig locates the cryptic endpoint.
type GatewayConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Query             string `mapstructure:"query"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	HistorySize       int    `mapstructure:"history_size"`
}

// SessionConfig holds static credential overrides and defaults for optional fields.
type SessionConfig struct {
	TTL       time.Duration    `mapstructure:"ttl"`
	ID        string           `mapstructure:"id"`
	ContextID string           `mapstructure:"context_id"`
	UserID    string           `mapstructure:"user_id"`
	Defaults  session.Defaults `mapstructure:"defaults"`
}

// BrowserConfig tells the inspector where to find the logged-in tab.
type BrowserConfig struct {
	Disabled     bool          `mapstructure:"disabled"`
	DebuggerURL  string        `mapstructure:"debugger_url"`
	Headless     bool          `mapstructure:"headless"`
	PageMatch    string        `mapstructure:"page_match"`
	CaptureMatch string        `mapstructure:"capture_match"`
	CaptureWait  time.Duration `mapstructure:"capture_wait"`
}

// ArchiveConfig enables the PostgreSQL report archive when DSN is set.
type ArchiveConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "warn",
		Gateway: GatewayConfig{
			BaseURL:     gateway.DefaultBaseURL,
			Query:       gateway.DefaultQuery,
			HistorySize: gateway.DefaultHistorySize,
		},
		Run: scheduler.DefaultSettings(),
		Session: SessionConfig{
			TTL:      session.DefaultTTL,
			Defaults: session.DefaultDefaults(),
		},
		Browser: BrowserConfig{
			DebuggerURL:  "http://127.0.0.1:9222",
			PageMatch:    "resdesktop",
			CaptureMatch: "cryptic",
			CaptureWait:  5 * time.Second,
		},
	}
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+"."+configType), nil
}

// Load reads configuration. An explicit path must exist; the default file is
// optional and a missing one yields defaults plus environment overrides.
func Load(explicit string) (Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(configType)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		dir, err := xdg.ConfigDir()
		if err != nil {
			return Config{}, nil, fmt.Errorf("resolve config dir: %w", err)
		}
		v.SetConfigName(configName)
		v.AddConfigPath(dir)
	}
	for key, val := range flatten("", Document(Default())) {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, fmt.Errorf("read config file: %w", err)
		}
	}
	c, err := Decode(v)
	if err != nil {
		return Config{}, nil, err
	}
	return c, v, nil
}

// Decode unmarshals the current viper state.
func Decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Watch re-decodes the file on every change and hands the result to onChange.
func Watch(v *viper.Viper, log *zap.Logger, onChange func(Config)) {
	if log == nil {
		log = zap.NewNop()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		c, err := Decode(v)
		if err != nil {
			log.Warn("ignoring config change", zap.Error(err))
			return
		}
		onChange(c)
	})
	v.WatchConfig()
}

// WriteDefaults writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefaults(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	return os.Rename(tmpName, path)
}

// Marshal encodes c as TOML.
func Marshal(c Config) ([]byte, error) {
	data, err := toml.Marshal(Document(c))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Document renders c as the nested key space used by the config file, with
// durations written as strings such as "1.5s".
func Document(c Config) map[string]any {
	return map[string]any{
		"log_level":  c.LogLevel,
		"log_file":   c.LogFile,
		"catalog":    c.Catalog,
		"output_dir": c.OutputDir,
		"gateway": map[string]any{
			"base_url":            c.Gateway.BaseURL,
			"query":               c.Gateway.Query,
			"requests_per_minute": c.Gateway.RequestsPerMinute,
			"history_size":        c.Gateway.HistorySize,
		},
		"run": map[string]any{
			"batch_size":             c.Run.BatchSize,
			"delay_between_commands": c.Run.DelayBetweenCommands.String(),
			"delay_between_batches":  c.Run.DelayBetweenBatches.String(),
			"timeout_per_command":    c.Run.TimeoutPerCommand.String(),
			"skip_on_error":          c.Run.SkipOnError,
			"max_retries":            c.Run.MaxRetries,
			"retry_delay":            c.Run.RetryDelay.String(),
		},
		"session": map[string]any{
			"ttl":        c.Session.TTL.String(),
			"id":         c.Session.ID,
			"context_id": c.Session.ContextID,
			"user_id":    c.Session.UserID,
			"defaults": map[string]any{
				"organization":    c.Session.Defaults.Organization,
				"office_id":       c.Session.Defaults.OfficeID,
				"gds":             c.Session.Defaults.GDSCode,
				"user_id":         c.Session.Defaults.UserID,
				"prohibited_list": c.Session.Defaults.ProhibitedListID,
			},
		},
		"browser": map[string]any{
			"disabled":      c.Browser.Disabled,
			"debugger_url":  c.Browser.DebuggerURL,
			"headless":      c.Browser.Headless,
			"page_match":    c.Browser.PageMatch,
			"capture_match": c.Browser.CaptureMatch,
			"capture_wait":  c.Browser.CaptureWait.String(),
		},
		"archive": map[string]any{
			"dsn": c.Archive.DSN,
		},
	}
}

// Keys lists every dotted config key, sorted.
func Keys() []string {
	flat := flatten("", Document(Default()))
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(prefix string, doc map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
