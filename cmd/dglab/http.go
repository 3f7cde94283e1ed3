package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyberinferno/dglab-ws/httpfallback"
	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var httpAllPresets bool

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Send a single command over the HTTP fallback",
	Long: `Send one command to the relay with an HTTP POST. No connection or session
state is kept; the relay forwards the command to every bound device.`,
}

var httpMessageCmd = &cobra.Command{
	Use:   "message <type> <message>",
	Short: "Post a raw typed message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := protocol.ParseMessageType(args[0])
		if err != nil {
			return err
		}
		return postHTTP(cmd, func(c *httpfallback.Client) error {
			return c.SendMessage(cmd.Context(), t, strings.Join(args[1:], " "))
		})
	},
}

var httpStrengthCmd = &cobra.Command{
	Use:   "strength <A|B> <dec|inc|set> <value>",
	Short: "Post a strength change",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := protocol.ParseChannel(args[0])
		if err != nil {
			return err
		}
		mode, err := protocol.ParseStrengthChangeMode(args[1])
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[2], err)
		}
		return postHTTP(cmd, func(c *httpfallback.Client) error {
			return c.SendStrength(cmd.Context(), ch, mode, value)
		})
	},
}

var httpClearCmd = &cobra.Command{
	Use:   "clear <A|B>",
	Short: "Post a waveform clear",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := protocol.ParseChannel(args[0])
		if err != nil {
			return err
		}
		return postHTTP(cmd, func(c *httpfallback.Client) error {
			return c.SendClear(cmd.Context(), ch)
		})
	},
}

var httpPulseCmd = &cobra.Command{
	Use:   "pulse <A|B> <wave>",
	Short: "Post a waveform",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := protocol.ParseChannel(args[0])
		if err != nil {
			return err
		}
		return postHTTP(cmd, func(c *httpfallback.Client) error {
			return c.SendPulse(cmd.Context(), ch, args[1])
		})
	},
}

var httpPresetCmd = &cobra.Command{
	Use:   "preset <A|B> [name]",
	Short: "Post a preset waveform, or all of them with --all",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := protocol.ParseChannel(args[0])
		if err != nil {
			return err
		}
		catalog := preset.Default()
		if httpAllPresets {
			return postHTTP(cmd, func(c *httpfallback.Client) error {
				return c.SendAllPresetPulses(cmd.Context(), catalog, ch)
			})
		}
		if len(args) < 2 {
			return fmt.Errorf("preset name required unless --all is set")
		}
		return postHTTP(cmd, func(c *httpfallback.Client) error {
			return c.SendPresetPulse(cmd.Context(), catalog, ch, args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(httpCmd)
	httpCmd.AddCommand(httpMessageCmd, httpStrengthCmd, httpClearCmd, httpPulseCmd, httpPresetCmd)

	httpPresetCmd.Flags().BoolVar(&httpAllPresets, "all", false, "Post every preset in catalog order")
}

func postHTTP(cmd *cobra.Command, send func(c *httpfallback.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	client := httpfallback.New(cfg.Host, cfg.Port, cfg.HTTPTimeout, log)
	if err := send(client); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("sent"), client.BaseURL())
	return nil
}
