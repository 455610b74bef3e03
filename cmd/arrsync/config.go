package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/arrsync/internal/adapter"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, false, func(ctx context.Context, a *app) error {
				a.printer.Info("%s", adapter.ConfigFileUsed())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, false, func(ctx context.Context, a *app) error {
				out, err := yaml.Marshal(a.cfg.Settings())
				if err != nil {
					return fmt.Errorf("failed to render config: %w", err)
				}
				a.printer.Info("%s", strings.TrimRight(string(out), "\n"))
				return nil
			})
		},
	})

	return cmd
}
