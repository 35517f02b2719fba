// Package config loads the chat client settings. Sources are applied in
// increasing priority: built-in defaults, a YAML file, the environment
// (including a .env file) and finally command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "http://localhost:5000"
	DefaultTimeout  = 10 * time.Second
	DefaultLogLevel = "info"
)

type Config struct {
	BaseURL        string        `yaml:"base_url"`
	UserID         string        `yaml:"user_id"`
	PeerID         string        `yaml:"peer_id"`
	PeerName       string        `yaml:"peer_name"`
	Timeout        Duration      `yaml:"timeout"`
	RealtimeURL    string        `yaml:"realtime_url"`
	RedisURL       string        `yaml:"redis_url"`
	SerializeSends bool          `yaml:"serialize_sends"`
	Bell           bool          `yaml:"bell"`
	Logging        LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration. An empty File logs to stderr.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Duration is a time.Duration that parses from "10s" style strings or plain
// numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration value at line %d", node.Line)
	}
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return td, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func Default() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: Duration(DefaultTimeout),
		Bell:    true,
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load returns defaults overlaid with the YAML file at path (skipped when
// path is empty) and the environment. A .env file in the working directory
// is loaded first if present; variables already set win over it.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "config: load .env")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFile overlays the fields present in the YAML file.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config: read file")
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

// ApplyEnv overlays the variables that lookup reports as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "config: %s", name)
		}
		*dst = b
		return nil
	}

	str("CHAT_BASE_URL", &c.BaseURL)
	str("CHAT_USER_ID", &c.UserID)
	str("CHAT_PEER_ID", &c.PeerID)
	str("CHAT_PEER_NAME", &c.PeerName)
	str("CHAT_REALTIME_URL", &c.RealtimeURL)
	str("REDIS_URL", &c.RedisURL)
	str("CHAT_LOG_LEVEL", &c.Logging.Level)
	str("CHAT_LOG_FILE", &c.Logging.File)

	if v, ok := lookup("CHAT_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return errors.Wrap(err, "config: CHAT_TIMEOUT")
		}
		c.Timeout = Duration(d)
	}
	if err := boolean("CHAT_SERIALIZE_SENDS", &c.SerializeSends); err != nil {
		return err
	}
	return boolean("CHAT_BELL", &c.Bell)
}

// RegisterFlags declares the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "chat backend base URL (default "+DefaultBaseURL+")")
	fs.String("user", "", "local user id")
	fs.String("peer", "", "remote user id")
	fs.String("peer-name", "", "display name of the remote user")
	fs.Duration("timeout", 0, "timeout of each backend call (default 10s)")
	fs.String("realtime-url", "", "websocket URL of the realtime feed; empty disables it")
	fs.String("redis-url", "", "redis URL used to cache conversation ids")
	fs.Bool("serialize-sends", false, "send one message at a time, in order")
	fs.Bool("no-bell", false, "disable the terminal bell on send/receive")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error)")
	fs.String("log-file", "", "write logs to this file instead of stderr")
}

// ApplyFlags overlays the flags the user actually set.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "base-url":
			c.BaseURL = f.Value.String()
		case "user":
			c.UserID = f.Value.String()
		case "peer":
			c.PeerID = f.Value.String()
		case "peer-name":
			c.PeerName = f.Value.String()
		case "timeout":
			var d time.Duration
			d, err = fs.GetDuration("timeout")
			c.Timeout = Duration(d)
		case "realtime-url":
			c.RealtimeURL = f.Value.String()
		case "redis-url":
			c.RedisURL = f.Value.String()
		case "serialize-sends":
			c.SerializeSends, err = fs.GetBool("serialize-sends")
		case "no-bell":
			var off bool
			off, err = fs.GetBool("no-bell")
			c.Bell = !off
		case "log-level":
			c.Logging.Level = f.Value.String()
		case "log-file":
			c.Logging.File = f.Value.String()
		}
	})
	return errors.Wrap(err, "config: flags")
}

// Validate checks that a session can be opened with c.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base url")
	}
	if strings.TrimSpace(c.UserID) == "" {
		missing = append(missing, "user id")
	}
	if strings.TrimSpace(c.PeerID) == "" {
		missing = append(missing, "peer id")
	}
	if len(missing) > 0 {
		return errors.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	if c.UserID == c.PeerID {
		return errors.New("config: user and peer must differ")
	}
	if c.Timeout.Duration() <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}
