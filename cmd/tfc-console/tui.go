package main

import (
	"github.com/spf13/cobra"

	"github.com/skaginn3x/tfc-console/internal/dbus"
	"github.com/skaginn3x/tfc-console/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and edit ipc connections in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		bus, err := dialBus(ctx, cfg)
		if err != nil {
			return err
		}
		defer bus.Close()

		alerts := newAlertCenter(cfg)
		ruler := dbus.NewRuler(bus)
		return tui.Run(ctx, ruler, alerts, cfg.PageSize)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
