package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)
	err := rootCmd.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskbox",
		Short:         "taskbox - a personal task list backed by a remote service",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.backend, "backend", "", "Task backend: rest or google (overrides config)")
	flags.StringVar(&a.flags.taskList, "task-list", "", "Google task list title (overrides config)")
	flags.StringVar(&a.flags.apiURL, "api-url", "", "REST service URL (overrides config)")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		listCmd(a),
		addCmd(a),
		editCmd(a),
		doneCmd(a),
		favCmd(a),
		rmCmd(a),
		categoriesCmd(a),
		statsCmd(a),
		overdueCmd(a),
		importCmd(a),
		loginCmd(a),
		logoutCmd(a),
		authCmd(a),
		configCmd(a),
	)
	return rootCmd
}
