package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/okian/camctl/internal/adapters/opencast"
	"github.com/okian/camctl/internal/domain/types"
	"github.com/okian/camctl/pkg/logger"
	"github.com/spf13/cobra"
)

// NewCalendarCommand creates the calendar command.
func NewCalendarCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar <agent>",
		Short: "Fetch and print the upcoming recordings of a capture agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, rootOpts)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			client, err := opencast.NewClient(cfg.Opencast.Server,
				opencast.WithCredentials(cfg.Opencast.Username, cfg.Opencast.Password),
				opencast.WithFormat(cfg.Calendar.Format),
				opencast.WithTimeout(cfg.RequestTimeout),
				opencast.WithLocation(loc),
				opencast.WithLogger(logger.Get().Named("opencast")),
			)
			if err != nil {
				return err
			}

			now := time.Now()
			events, err := client.Fetch(ctx, args[0], now.Add(cfg.CalendarCutoff()))
			if err != nil {
				return err
			}
			views := make([]types.Event, 0, len(events))
			for _, ev := range events {
				if ev.Over(now) {
					continue
				}
				views = append(views, types.Event{Title: ev.Title, Start: ev.Start, End: ev.End, Active: ev.Active(now)})
			}
			slices.SortStableFunc(views, func(a, b types.Event) int { return a.Start.Compare(b.Start) })

			if rootOpts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			if len(views) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no upcoming recordings for %s\n", args[0])
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tEND\tACTIVE\tTITLE")
			for _, ev := range views {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n",
					ev.Start.In(loc).Format(time.DateTime), ev.End.In(loc).Format(time.DateTime), ev.Active, ev.Title)
			}
			return tw.Flush()
		},
	}
}
