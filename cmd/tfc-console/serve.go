package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/skaginn3x/tfc-console/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console HTTP and WebSocket API",
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
		log.Printf("serving on %s, %s bus", cfg.Listen, cfg.Bus)
		return server.Run(ctx, server.Config{
			Addr:      cfg.Listen,
			Transport: bus,
			Alerts:    alerts,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
