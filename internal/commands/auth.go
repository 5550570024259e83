package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/secrets"
)

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store backend credentials, encrypted at rest",
	}
	cmd.AddCommand(newAuthYNABCommand(a))
	cmd.AddCommand(newAuthActualCommand(a))
	return cmd
}

func newAuthYNABCommand(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "ynab",
		Short: "Store the YNAB personal access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			if err := a.secrets.SaveToken(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "YNAB token stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "YNAB personal access token")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newAuthActualCommand(a *app) *cobra.Command {
	var creds secrets.Credentials

	cmd := &cobra.Command{
		Use:   "actual",
		Short: "Store Actual Budget server credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.URL == "" || creds.Password == "" {
				return errors.New("--url and --password are required")
			}
			if err := a.secrets.SaveCredentials(creds); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Actual credentials stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.URL, "url", "", "Actual server URL")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Actual server password")
	cmd.Flags().StringVar(&creds.DataDir, "data-dir", "", "worker budget cache directory")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
