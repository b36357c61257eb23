// Package config loads and validates the remote-desktop server and client
// configuration from a YAML file, environment variables, and flag defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds everything needed to start the auth, screen, and input
// listeners, plus the ambient logging/concurrency knobs.
type Config struct {
	Host string `mapstructure:"host" yaml:"host"`

	AuthPort   int `mapstructure:"auth_port" yaml:"auth_port"`
	ScreenPort int `mapstructure:"screen_port" yaml:"screen_port"`
	InputPort  int `mapstructure:"input_port" yaml:"input_port"`

	DBFile       string `mapstructure:"db_file" yaml:"db_file"`
	MonitorIndex int    `mapstructure:"monitor_index" yaml:"monitor_index"`

	FrameQuality      int `mapstructure:"frame_quality" yaml:"frame_quality"`
	FrameIntervalMS   int `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
	FrameScalePercent int `mapstructure:"frame_scale_percent" yaml:"frame_scale_percent"`

	AuthReadTimeoutSeconds  int `mapstructure:"auth_read_timeout_seconds" yaml:"auth_read_timeout_seconds"`
	HandshakeTimeoutSeconds int `mapstructure:"handshake_timeout_seconds" yaml:"handshake_timeout_seconds"`
	InputReadTimeoutSeconds int `mapstructure:"input_read_timeout_seconds" yaml:"input_read_timeout_seconds"`
	MaxConcurrentAuthConns  int `mapstructure:"max_concurrent_auth_conns" yaml:"max_concurrent_auth_conns"`
	SessionTTLHours         int `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file,omitempty"`

	ConnectionLogDir string `mapstructure:"connection_log_dir" yaml:"connection_log_dir"`
}

// Default returns the configuration a fresh install starts with.
func Default() *Config {
	return &Config{
		Host:       "0.0.0.0",
		AuthPort:   5002,
		ScreenPort: 5000,
		InputPort:  5001,

		DBFile:       "users.db",
		MonitorIndex: 0,

		FrameQuality:      85,
		FrameIntervalMS:   30,
		FrameScalePercent: 100,

		AuthReadTimeoutSeconds:  10,
		HandshakeTimeoutSeconds: 10,
		InputReadTimeoutSeconds: 1,
		MaxConcurrentAuthConns:  32,
		SessionTTLHours:         24,

		LogLevel:  "info",
		LogFormat: "text",

		ConnectionLogDir: "connection_logs",
	}
}

// Load reads cfgFile (or the default search path) into a Config seeded
// from Default, overlays BREEZE_-style environment variables (prefixed
// RDESK_ here), and validates the result. An environment variable only
// overrides a key the config file sets; keys absent from the file keep
// their Default value whatever the environment holds.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("rdesk-server")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RDESK")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	result := cfg.Validate()
	if result.HasFatals() {
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// YAML renders the config as a YAML document, in the same key layout a
// config file uses. The CLI's config subcommand prints this so operators
// can snapshot the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal yaml: %w", err)
	}
	return data, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "RemoteDesk")
	case "darwin":
		return "/Library/Application Support/RemoteDesk"
	default:
		return "/etc/rdesk"
	}
}
