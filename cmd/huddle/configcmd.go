package main

import (
	"github.com/spf13/cobra"

	"github.com/platinummonkey/huddle/pkg/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration serve would run with, after defaults, the config file " +
			"and HUDDLE_* environment variables are merged. Credentials are redacted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadViper(cmd)
			if err != nil {
				return err
			}
			// fail on the same errors serve would
			if _, err := config.FromViper(v); err != nil {
				return err
			}
			out, err := config.Dump(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
