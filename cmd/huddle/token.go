package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/huddle/pkg/auth"
)

func newTokenCmd() *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Long:  "Issue a signed session token, for local development and operator access.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			issuer, err := auth.NewSessionIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(userID, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id the token is issued to")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	return cmd
}
