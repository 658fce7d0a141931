package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stevelr/kv-assets/internal/config"
	"github.com/stevelr/kv-assets/internal/logging"
	"github.com/stevelr/kv-assets/internal/service"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "kvsync",
		Short:         "Sync static assets into Workers KV storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var debug bool
	rootCmd.PersistentFlags().
		BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetDebug(debug)
	}

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the config file interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.GetInteractive()
			return err
		},
	}

	var prune bool
	var syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Scan assets, rebuild the index, and upload changed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Get()
			if err != nil {
				return err
			}
			srv, err := service.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return srv.Sync(cmd.Context(), prune)
		},
	}
	syncCmd.Flags().
		BoolVar(&prune, "prune", false, "Remove unreferenced KV assets after a successful publish")

	var dumpCmd = &cobra.Command{
		Use:   "dump [artifact]",
		Short: "Print the contents of an index artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := config.Get()
				if err != nil {
					return err
				}
				path = cfg.Output
			}
			return service.Dump(os.Stdout, path)
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Resync whenever files in the asset directory change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Get()
			if err != nil {
				return err
			}
			srv, err := service.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return srv.Watch(cmd.Context())
		},
	}

	var logLimit int
	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show recent sync journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.ShowLog(cmd.Context(), os.Stdout, logLimit)
		},
	}
	logCmd.Flags().
		IntVarP(&logLimit, "limit", "n", 50, "Maximum number of entries to show")

	rootCmd.AddCommand(initCmd, syncCmd, dumpCmd, watchCmd, logCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}
}
