package main

import (
	"fmt"

	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var presetsShowWaves bool

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in waveform presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for i, e := range preset.Default().Entries() {
			if presetsShowWaves {
				fmt.Fprintf(out, "%2d %s\n   %s\n", i+1, color.YellowString(e.Name), e.Wave)
				continue
			}
			fmt.Fprintf(out, "%2d %s\n", i+1, e.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.Flags().BoolVar(&presetsShowWaves, "waves", false, "Also print each waveform string")
}
