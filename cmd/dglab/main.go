package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cyberinferno/dglab-ws/config"
	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const serviceName = "dglab"

var (
	envFile    string
	host       string
	port       int
	logLevel   string
	logDir     string
	logConsole bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dglab",
	Short: "DungeonLab relay client",
	Long: `dglab drives a DungeonLab device through its relay server.

Settings come from DGLAB_* environment variables (optionally loaded from a
.env file) and are overridden by flags.

Examples:
  # Connect over WebSocket and type commands on stdin
  dglab run --host 192.168.1.20

  # List the built-in presets
  dglab presets

  # One-shot strength change over HTTP
  dglab http strength A fixed 50`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading DGLAB_* variables")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Relay host (default: first local IPv4 address)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 4503, "Relay port")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write daily log files to this directory")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Human-readable log output")
}

// loadConfig reads the env file, the environment and the flags that were set
// explicitly, in increasing priority.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		// the default .env is optional, an explicit one is not
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = logDir
	}
	if flags.Changed("log-console") {
		cfg.LogConsole = logConsole
	}

	return cfg, cfg.Validate()
}

// newLogger writes logs to stderr so stdout carries only command output.
func newLogger(cmd *cobra.Command, cfg config.Config) (logger.Logger, error) {
	opts := cfg.Logger(serviceName)
	opts.Out = cmd.ErrOrStderr()
	return logger.New(opts)
}
