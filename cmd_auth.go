package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/auth"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func loginCmd(a *app) *cobra.Command {
	var token string
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the access token for the REST service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			session, err := a.session()
			if err != nil {
				return err
			}
			tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
			if expiresIn > 0 {
				tok.Expiry = a.now().Add(expiresIn)
			}
			if err := session.SignIn(tok); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token issued by the task service")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Token lifetime, if known (e.g. 24h)")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			if err := session.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func authCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize taskbox with a third-party account",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "google",
		Short: "Authorize access to Google Tasks",
		Long: `Authorize access to Google Tasks through the browser.

Download an OAuth client (desktop app) from the Google Cloud Console and
save it as credentials.json in the taskbox config directory first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthCfg, err := auth.GetConfig(filepath.Join(a.dir, auth.ClientSecretsFile), a.logger.Logger, auth.Scopes...)
			if err != nil {
				return err
			}
			session, err := a.session()
			if err != nil {
				return err
			}
			tok, err := auth.AuthorizeGoogle(cmd.Context(), oauthCfg, a.out)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			if err := session.SignIn(tok); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Authentication successful! Token saved to %s\n", filepath.Join(a.dir, auth.TokenFile))
			return nil
		},
	})
	return cmd
}
