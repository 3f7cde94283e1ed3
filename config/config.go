// Package config holds the settings of the dglab binary: defaults, an
// environment overlay (DGLAB_* variables, optionally from a .env file) and
// conversions into the per-package configs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/cyberinferno/dglab-ws/session"
	"github.com/cyberinferno/dglab-ws/wsclient"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "DGLAB_"

// Config is the complete runtime configuration.
type Config struct {
	Host string
	Port int

	Tick             time.Duration
	HandshakeTimeout time.Duration
	CloseTimeout     time.Duration
	PingInterval     time.Duration
	HostCacheTTL     time.Duration
	HTTPTimeout      time.Duration

	LogLevel   string
	LogDir     string
	LogConsole bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	DiscordWebhook string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:         4503,
		Tick:         16 * time.Millisecond,
		CloseTimeout: 5 * time.Second,
		HostCacheTTL: 5 * time.Minute,
		HTTPTimeout:  10 * time.Second,
		LogLevel:     "info",
		RedisChannel: "dglab:feedback",
	}
}

// FromEnv returns Default overlaid with the DGLAB_* environment variables
// that are set. Durations use time.ParseDuration syntax ("30s").
//
// Returns:
//   - The resulting Config
//   - An error naming the first variable that failed to parse or validate
func FromEnv() (Config, error) {
	c := Default()

	var err error
	c.Host = envString("HOST", c.Host)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.LogDir = envString("LOG_DIR", c.LogDir)
	c.RedisAddr = envString("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envString("REDIS_PASSWORD", c.RedisPassword)
	c.RedisChannel = envString("REDIS_CHANNEL", c.RedisChannel)
	c.DiscordWebhook = envString("DISCORD_WEBHOOK", c.DiscordWebhook)

	if c.Port, err = envInt("PORT", c.Port); err != nil {
		return Config{}, err
	}
	if c.RedisDB, err = envInt("REDIS_DB", c.RedisDB); err != nil {
		return Config{}, err
	}
	if c.LogConsole, err = envBool("LOG_CONSOLE", c.LogConsole); err != nil {
		return Config{}, err
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"TICK", &c.Tick},
		{"HANDSHAKE_TIMEOUT", &c.HandshakeTimeout},
		{"CLOSE_TIMEOUT", &c.CloseTimeout},
		{"PING_INTERVAL", &c.PingInterval},
		{"HOST_CACHE_TTL", &c.HostCacheTTL},
		{"HTTP_TIMEOUT", &c.HTTPTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.name, *d.dst); err != nil {
			return Config{}, err
		}
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks ranges that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config validation: port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("config validation: tick must be positive, got %s", c.Tick)
	}
	if c.CloseTimeout < 0 || c.HandshakeTimeout < 0 || c.PingInterval < 0 || c.HTTPTimeout < 0 {
		return fmt.Errorf("config validation: timeouts must not be negative")
	}

	return nil
}

// Transport returns the websocket transport settings.
func (c Config) Transport() wsclient.Config {
	t := wsclient.DefaultConfig()
	t.HandshakeTimeout = c.HandshakeTimeout
	t.CloseTimeout = c.CloseTimeout
	t.PingInterval = c.PingInterval
	return t
}

// Session returns the session manager settings.
func (c Config) Session() session.Config {
	return session.Config{
		Port:         c.Port,
		HostCacheTTL: c.HostCacheTTL,
	}
}

// Logger returns logger options for service.
func (c Config) Logger(service string) logger.Options {
	return logger.Options{
		Service: service,
		Level:   logger.ParseLevel(c.LogLevel),
		Console: c.LogConsole,
		Dir:     c.LogDir,
	}
}

// Level returns the parsed log level.
func (c Config) Level() zerolog.Level {
	return logger.ParseLevel(c.LogLevel)
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		return strings.TrimSpace(v)
	}

	return def
}

func envInt(name string, def int) (int, error) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}

	return n, nil
}

func envBool(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}

	return b, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}

	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}

	return d, nil
}
