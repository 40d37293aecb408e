package show

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/report"
)

// Command creates the show command.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "show <date>",
		Short: "List the tracks of one show",
		Long:  "List the analyzed tracks of a show date (YYYY-MM-DD) in track order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.Store()
			if err != nil {
				return err
			}
			date := args[0]
			tracks, err := store.QueryShow(date)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(tracks) == 0 {
				fmt.Fprintf(w, "No analyzed tracks for date %s.\n", date)
				return nil
			}
			fmt.Fprint(w, report.ScoreTable("Show: "+date, tracks).Render())
			fmt.Fprintln(w, report.ScoreLegend)
			return nil
		},
	}
}
