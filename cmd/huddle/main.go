// Command huddle runs the huddle API server and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/platinummonkey/huddle/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "huddle",
		Short:         "huddle school sports API",
		Long:          "huddle serves the school sports social platform API over REST and GraphQL.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "",
		"Configuration file. Environment variables (HUDDLE_*) override its values.")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd(), newConfigCmd())
	return root
}

// loadConfig reads the file named by --config, if any, and the environment
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := loadViper(cmd)
	if err != nil {
		return nil, err
	}
	return config.FromViper(v)
}

func loadViper(cmd *cobra.Command) (*viper.Viper, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.ReadViper(path)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
