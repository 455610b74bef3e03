package main

import (
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "arrsync",
		Short: "Sync Plex and Letterboxd watchlists to Radarr and Sonarr",
		Long: `arrsync forwards titles from your Plex and Letterboxd watchlists to
Radarr (movies) and Sonarr (series). Every forwarded item is recorded in a
local ledger so it is only ever sent once.

Run "arrsync sync" once, or "arrsync sync --follow" to keep watching.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/arrsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "ledger database path (overrides sync.database)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newClearCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newArrCmd(opts, domain.ServiceRadarr))
	rootCmd.AddCommand(newArrCmd(opts, domain.ServiceSonarr))
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}
