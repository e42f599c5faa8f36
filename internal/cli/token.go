package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/config"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCommand())
	cmd.AddCommand(newTokenVerifyCommand())
	return cmd
}

func newTokenIssueCommand() *cobra.Command {
	var (
		clientID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a client id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				return errors.New("--client-id is required")
			}
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL
			}

			token, err := authz.NewTokenIssuer(cfg.JWTSecret, ttl, authz.WithIssuer(cfg.JWTIssuer)).Issue(clientID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authz.BearerPrefix+token)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "client id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	return cmd
}

func newTokenVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a bearer token and print its client id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			caller, err := authz.NewTokenVerifier(cfg.JWTSecret).Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), caller.ClientID)
			return nil
		},
	}
}
