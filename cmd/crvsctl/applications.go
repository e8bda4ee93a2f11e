package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"opencrvs/internal/application/models"
	"opencrvs/internal/application/store"
	id "opencrvs/pkg/domain"
)

func (c *cli) applicationsCmd() *cobra.Command {
	apps := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"apps"},
		Short:   "Inspect stored application registries",
	}

	var (
		user     string
		worklist string
	)
	apps.PersistentFlags().StringVar(&user, "user", "", "registry owner (token subject)")
	_ = apps.MarkPersistentFlagRequired("user")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's applications as a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := models.ParseWorklist(worklist)
			if err != nil {
				return err
			}
			reg, closeStore, err := c.registry(cmd, user)
			if err != nil {
				return err
			}
			defer closeStore()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVENT\tSUBMISSION\tDOWNLOAD\tTRACKING ID\tMODIFIED")
			for app := range reg.ListBy(w.Predicate()) {
				modified := app.SavedOn
				if !app.ModifiedOn.IsZero() {
					modified = app.ModifiedOn
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					app.ID, app.Event, app.SubmissionStatus, app.DownloadStatus, app.TrackingID,
					modified.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&worklist, "worklist", "", "in-progress, sent-for-review, require-updates, ready-to-print or outbox")

	export := &cobra.Command{
		Use:   "export",
		Short: "Print a user's registry snapshot as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, closeStore, err := c.registry(cmd, user)
			if err != nil {
				return err
			}
			defer closeStore()

			out := []models.Application{}
			for app := range reg.All() {
				out = append(out, app)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				UserID       id.UserID            `json:"userId"`
				Applications []models.Application `json:"applications"`
			}{reg.UserID(), out})
		},
	}

	apps.AddCommand(list, export)
	return apps
}

func (c *cli) registry(cmd *cobra.Command, user string) (*store.Registry, func(), error) {
	userID, err := id.ParseUserID(user)
	if err != nil {
		return nil, nil, err
	}
	kvStore, closer, err := c.openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	reg, err := store.NewRegistries(kvStore).For(cmd.Context(), userID)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return reg, func() { _ = closer.Close() }, nil
}
