package top

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/calibrate"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/report"
)

// Command creates the top command.
func Command(ctx *app.Context) *cobra.Command {
	var (
		limit       int
		minDuration float64
	)

	cmd := &cobra.Command{
		Use:       "top [score]",
		Short:     "Show the top tracks by a score",
		Long:      "Rank analyzed tracks by one score (default groove).",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: calibrate.ScoreNames[:],
		RunE: func(cmd *cobra.Command, args []string) error {
			score := "groove"
			if len(args) == 1 {
				score = strings.ToLower(args[0])
			}
			column, err := scoreColumn(score)
			if err != nil {
				return err
			}

			store, err := ctx.Store()
			if err != nil {
				return err
			}
			tracks, err := store.QueryTop(column, limit, minDuration*60)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(tracks) == 0 {
				fmt.Fprintln(w, "No results found.")
				return nil
			}
			fmt.Fprint(w, report.ScoreTable(fmt.Sprintf("Top %d tracks by %s", len(tracks), score), tracks).Render())
			fmt.Fprintln(w, report.ScoreLegend)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of results")
	cmd.Flags().Float64Var(&minDuration, "min-duration", 0, "Minimum track length in minutes")

	return cmd
}

func scoreColumn(score string) (string, error) {
	column := score + "_score"
	if !datastore.IsScoreColumn(column) {
		return "", fmt.Errorf("unknown score %q, want one of %s",
			score, strings.Join(calibrate.ScoreNames[:], ", "))
	}
	return column, nil
}
