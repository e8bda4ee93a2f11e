package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	jwttoken "opencrvs/internal/jwt_token"
)

func (c *cli) keysCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage token signing keys",
	}

	var (
		dir  string
		bits int
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a new RSA key pair as private-key.pem and public-key.pem",
		RunE: func(cmd *cobra.Command, _ []string) error {
			privatePEM, publicPEM, err := jwttoken.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			privatePath := filepath.Join(dir, "private-key.pem")
			publicPath := filepath.Join(dir, "public-key.pem")
			if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil { // #nosec G306 - public half
				return fmt.Errorf("write public key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), privatePath)
			fmt.Fprintln(cmd.OutOrStdout(), publicPath)
			return nil
		},
	}
	generate.Flags().StringVar(&dir, "dir", ".", "directory to write the key pair to")
	generate.Flags().IntVar(&bits, "bits", 2048, "RSA key size")

	keys.AddCommand(generate)
	return keys
}
