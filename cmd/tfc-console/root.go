// Command tfc-console is the operator console for a tfc installation:
// it serves the configuration and connection API over HTTP, runs the
// terminal connection table, and offers one-shot subcommands for
// scripting.
package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/config"
	"github.com/skaginn3x/tfc-console/internal/dbus"
)

var (
	configPath string
	busFlag    string
)

var rootCmd = &cobra.Command{
	Use:           "tfc-console",
	Short:         "Operator console for tfc process configuration and ipc connections",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to console.yaml")
	rootCmd.PersistentFlags().StringVar(&busFlag, "bus", "", "message bus: system or session")
}

// loadConfig reads the config file and applies the bus flag on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if busFlag != "" {
		cfg.Bus = busFlag
	}
	return cfg, nil
}

// dialBus connects to the configured broker with the fixed-interval
// reconnect loop running for the life of ctx.
func dialBus(ctx context.Context, cfg config.Config) (*dbus.Bus, error) {
	kind := dbus.SystemBus
	if cfg.Bus == "session" {
		kind = dbus.SessionBus
	}
	logger := log.New(log.Writer(), "[dbus] ", log.LstdFlags)
	return dbus.Dial(ctx, kind, cfg.ReconnectInterval, logger)
}

func newAlertCenter(cfg config.Config) *alert.Center {
	return alert.NewCenter(cfg.AlertTTL)
}
