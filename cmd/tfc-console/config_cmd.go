package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaginn3x/tfc-console/internal/dbus"
	"github.com/skaginn3x/tfc-console/internal/form"
	"github.com/skaginn3x/tfc-console/internal/ipc"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write process configuration documents",
}

var configProcessesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List configuration-bearing services",
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

		services, err := dbus.NewConfigs(bus).Services(ctx)
		if err != nil {
			return err
		}
		for _, s := range services {
			fmt.Println(ipc.TrimOrg(s))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <service>",
	Short: "Print a service's configuration documents as JSON",
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

		configs := dbus.NewConfigs(bus)
		objects, err := configs.Objects(ctx, args[0])
		if err != nil {
			return err
		}
		out := map[string]dbus.Document{}
		for _, obj := range objects {
			doc, err := configs.Fetch(ctx, args[0], obj)
			if err != nil {
				return err
			}
			out[obj.Path] = doc
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <service> <object-path> <file|->",
	Short: "Validate a value document against the schema and write it",
	Args:  cobra.ExactArgs(3),
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

		var body []byte
		if args[2] == "-" {
			body, err = io.ReadAll(os.Stdin)
		} else {
			body, err = os.ReadFile(args[2])
		}
		if err != nil {
			return err
		}

		configs := dbus.NewConfigs(bus)
		objects, err := configs.Objects(ctx, args[0])
		if err != nil {
			return err
		}
		var obj *dbus.Object
		for i := range objects {
			if objects[i].Path == args[1] {
				obj = &objects[i]
				break
			}
		}
		if obj == nil {
			return fmt.Errorf("no config object at %s on %s", args[1], args[0])
		}

		rawSchema, err := configs.RawSchema(ctx, args[0], *obj)
		if err != nil {
			return err
		}
		alerts := newAlertCenter(cfg)
		f, err := form.New(rawSchema, body, alerts)
		if err != nil {
			return err
		}
		f.Revalidate()
		ok := f.Submit(func(values any) error {
			return configs.Write(ctx, args[0], *obj, values)
		})
		if !ok {
			for _, a := range alerts.Active() {
				fmt.Fprintln(os.Stderr, a.Title)
			}
			return fmt.Errorf("configuration rejected")
		}
		fmt.Println("written")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configProcessesCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
