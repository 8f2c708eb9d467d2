package main

import (
	"fmt"

	"github.com/harrisonrobin/taskbox/pkg/config"
	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := a.cfg.Fields()
			for _, k := range config.Keys() {
				fmt.Fprintf(a.out, "%-10s %s\n", k, fields[k])
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting in the config file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// flag overrides must not leak into the file
			cfg, err := config.Load(a.configPath())
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			if err := cfg.Set(args[0], value); err != nil {
				return err
			}
			if err := config.Save(a.configPath(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s set to %q\n", args[0], cfg.Fields()[args[0]])
			return nil
		},
	})
	return cmd
}
