// Command crvsctl is the operator CLI: key and token management, tracking
// ids, and read access to stored application registries.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"opencrvs/internal/kv"
	"opencrvs/internal/platform/config"
	"opencrvs/internal/platform/logger"
)

// cli carries what the commands share so tests can swap storage and output.
type cli struct {
	out       io.Writer
	openStore func(ctx context.Context) (kv.Store, io.Closer, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out: out,
		openStore: func(ctx context.Context) (kv.Store, io.Closer, error) {
			cfg, err := config.FromEnv()
			if err != nil {
				return nil, nil, err
			}
			return kv.Open(ctx, &cfg, logger.NewWithWriter(os.Stderr, cfg.Server.LogLevel))
		},
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crvsctl",
		Short:         "Operate an OpenCRVS deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.AddCommand(
		c.keysCmd(),
		c.tokenCmd(),
		c.trackingIDCmd(),
		c.applicationsCmd(),
	)
	return root
}

func main() {
	if err := newCLI(os.Stdout).rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crvsctl:", err)
		os.Exit(1)
	}
}
