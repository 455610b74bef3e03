package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mmcdole/arrsync/internal/adapter"
	"github.com/mmcdole/arrsync/internal/adapter/source/plex"
	"github.com/spf13/cobra"
)

const (
	plexLinkURL = "https://plex.tv/link"
	pinTimeout  = 5 * time.Minute
)

func newLoginCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Plex and save the token",
		Long: `Link arrsync to your Plex account with a PIN. The token is written to
the config file so the watchlist can be read on later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, global, false, runLogin)
		},
	}
}

func runLogin(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	clientID := a.cfg.Plex.ClientIdentifier
	auth := plex.NewAuthClient(clientID, a.logger)

	pin, pinID, err := auth.GetPIN(ctx)
	if err != nil {
		return fmt.Errorf("failed to get PIN: %w", err)
	}

	a.printer.Info("")
	a.printer.Info("To sign in, visit: %s", plexLinkURL)
	a.printer.Info("Enter code: %s", pin)
	a.printer.Info("")
	a.printer.Info("Waiting for authorization...")

	token, err := auth.WaitForPIN(ctx, pinID, pinTimeout)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	user, err := auth.ValidateToken(ctx, token)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}

	if err := adapter.SaveToken(token, clientID); err != nil {
		return err
	}

	a.printer.Success("Signed in as %s", user.Username)
	a.printer.Info("Token saved to %s", adapter.ConfigFileUsed())
	return nil
}
