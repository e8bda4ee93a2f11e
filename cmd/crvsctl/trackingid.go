package main

import (
	"fmt"

	"github.com/spf13/cobra"

	wfservice "opencrvs/internal/workflow/service"
	id "opencrvs/pkg/domain"
)

func (c *cli) trackingIDCmd() *cobra.Command {
	var (
		event string
		count int
	)
	cmd := &cobra.Command{
		Use:   "tracking-id",
		Short: "Generate tracking ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			vital, err := id.ParseEventType(event)
			if err != nil {
				return err
			}
			for range count {
				trackingID, err := wfservice.GenerateTrackingID(vital)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), trackingID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&event, "event", "birth", "birth or death")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many ids to print")
	return cmd
}
