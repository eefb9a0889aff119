package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skaginn3x/tfc-console/internal/dbus"
	"github.com/skaginn3x/tfc-console/internal/ipc"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Inspect and edit the signal/slot connection graph",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List signals with their connected slots",
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

		ruler := dbus.NewRuler(bus)
		signals, err := ruler.Signals(ctx)
		if err != nil {
			return err
		}
		slots, err := ruler.Slots(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SIGNAL\tTYPE\tSLOTS")
		for _, sig := range signals {
			names := ipc.Connections(slots)[sig.Name]
			fmt.Fprintf(w, "%s\t%s\t%d\n", ipc.TrimOrg(sig.Name), sig.Type, len(names))
			for _, name := range names {
				fmt.Fprintf(w, "  ↳ %s\t\t\n", ipc.TrimOrg(name))
			}
		}
		return w.Flush()
	},
}

var connectionsJSONCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump signals, slots, and connections as JSON",
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

		ruler := dbus.NewRuler(bus)
		signals, err := ruler.Signals(ctx)
		if err != nil {
			return err
		}
		slots, err := ruler.Slots(ctx)
		if err != nil {
			return err
		}
		conns, err := ruler.Connections(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"signals":     signals,
			"slots":       slots,
			"connections": conns,
		})
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <slot> <signal>",
	Short: "Feed a slot from a signal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := dbus.NewRuler(bus).Connect(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("connected %s <- %s\n", ipc.TrimOrg(args[0]), ipc.TrimOrg(args[1]))
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <slot>",
	Short: "Detach a slot from whatever feeds it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if err := dbus.NewRuler(bus).Disconnect(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("disconnected %s\n", ipc.TrimOrg(args[0]))
		return nil
	},
}

func init() {
	connectionsCmd.AddCommand(connectionsListCmd, connectionsJSONCmd, connectCmd, disconnectCmd)
	rootCmd.AddCommand(connectionsCmd)
}
