package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/ideamans/go-sheetsync/adapters/googlesheets"
	"github.com/ideamans/go-sheetsync/configfile"
	"github.com/ideamans/go-sheetsync/stores/sqlite"
	"github.com/spf13/cobra"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Sheets with an OAuth client",
		Long: `Obtain an OAuth user credential for the "store" credentials source.

  1. sheetsync auth url
       open the printed URL and grant access; note the printed state
  2. sheetsync auth exchange --state STATE REDIRECT_URL
       pass the URL the browser was redirected to; the credential is
       stored in the database once its state matches

credentials.client_secrets must point to the OAuth client JSON downloaded from
the Google Cloud console.`,
	}

	authCmd.AddCommand(
		&cobra.Command{
			Use:   "url",
			Short: "Print the consent page URL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, flow, err := loadOAuthFlow(opts)
				if err != nil {
					return err
				}

				state := uuid.NewString()
				fmt.Fprintln(cmd.OutOrStdout(), flow.AuthCodeURL(state))
				fmt.Fprintf(cmd.ErrOrStderr(), "state: %s (pass it to auth exchange --state)\n", state)
				return nil
			},
		},
		newAuthExchangeCmd(opts),
	)
	return authCmd
}

func newAuthExchangeCmd(opts *rootOptions) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "exchange REDIRECT_URL",
		Short: "Exchange the authorization code of a redirect and store the credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := googlesheets.CodeFromRedirect(args[0], state)
			if err != nil {
				return err
			}

			file, flow, err := loadOAuthFlow(opts)
			if err != nil {
				return err
			}

			cred, err := flow.Exchange(cmd.Context(), code)
			if err != nil {
				return err
			}

			db, err := sqlite.Open(file.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveCredential(cmd.Context(), cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credential stored in %s\n", file.Database)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State printed by auth url")
	cmd.MarkFlagRequired("state")
	return cmd
}

func loadOAuthFlow(opts *rootOptions) (*configfile.File, *googlesheets.OAuthFlow, error) {
	file, err := configfile.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if file.Credentials.ClientSecrets == "" {
		return nil, nil, fmt.Errorf("credentials.client_secrets is not configured")
	}

	secrets, err := os.ReadFile(file.Credentials.ClientSecrets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read client secrets: %w", err)
	}

	flow, err := googlesheets.NewOAuthFlow(secrets, file.Credentials.RedirectURL)
	if err != nil {
		return nil, nil, err
	}
	return file, flow, nil
}
