package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "opencrvs/internal/jwt_token"
	"opencrvs/internal/platform/config"
)

func (c *cli) tokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue tokens for testing and service accounts",
	}

	defaults := config.Default().Auth
	var (
		keyPath  string
		subject  string
		audience string
		issuer   string
		scope    []string
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign an RS256 token with the given private key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keyPath == "" {
				return errors.New("--key is required")
			}
			key, err := jwttoken.LoadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			signed, err := jwttoken.NewJWTService(key, nil, issuer, audience).Issue(subject, audience, scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&keyPath, "key", "", "PEM encoded RSA private key")
	issue.Flags().StringVar(&subject, "subject", "auth", "token subject")
	issue.Flags().StringVar(&audience, "audience", defaults.NotificationAudience, "token audience")
	issue.Flags().StringVar(&issuer, "issuer", defaults.Issuer, "token issuer")
	issue.Flags().StringSliceVar(&scope, "scope", []string{"service"}, "token scopes")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	token.AddCommand(issue)
	return token
}
