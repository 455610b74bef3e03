package main

import (
	"context"
	"fmt"

	"github.com/mmcdole/arrsync/internal/adapter/destination"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/spf13/cobra"
)

// arrService is what the radarr and sonarr commands need from a destination
type arrService interface {
	TestConnection(ctx context.Context) error
	Info(ctx context.Context) (*destination.Info, error)
}

// arr builds the client for service from its url and api key. It does not
// require the destination to be enabled, so profiles can be looked up
// before turning it on.
func (a *app) arr(service string) (arrService, error) {
	var url, apiKey string
	switch service {
	case domain.ServiceRadarr:
		url, apiKey = a.cfg.Radarr.URL, a.cfg.Radarr.APIKey
	case domain.ServiceSonarr:
		url, apiKey = a.cfg.Sonarr.URL, a.cfg.Sonarr.APIKey
	}
	if url == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: %s.url and %s.api_key are required", domain.ErrConfiguration, service, service)
	}

	if service == domain.ServiceSonarr {
		return a.sonarr(), nil
	}
	return a.radarr(), nil
}

func newArrCmd(global *globalOptions, service string) *cobra.Command {
	name := domain.ServiceDisplayName(service)

	cmd := &cobra.Command{
		Use:   service,
		Short: fmt.Sprintf("Inspect the %s connection", name),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: fmt.Sprintf("List %s quality profiles, root folders and tags", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, false, func(ctx context.Context, a *app) error {
				client, err := a.arr(service)
				if err != nil {
					return err
				}
				info, err := client.Info(ctx)
				if err != nil {
					return fmt.Errorf("failed to query %s: %w", name, err)
				}
				a.printer.ServiceInfo(name, info)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: fmt.Sprintf("Check that %s answers with the configured api key", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, false, func(ctx context.Context, a *app) error {
				client, err := a.arr(service)
				if err != nil {
					return err
				}
				if err := client.TestConnection(ctx); err != nil {
					return fmt.Errorf("%s connection failed: %w", name, err)
				}
				a.printer.Success("%s connection ok", name)
				return nil
			})
		},
	})

	return cmd
}
