package rescore

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/analysis"
	"github.com/lexicone42/setbreak-sub000/internal/app"
)

// Command creates the rescore command.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recompute scores from stored analyses",
		Long: `Recompute the jam, valence and arousal scores of every analyzed track
from the stored features, without decoding audio. This replaces any
earlier calibration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ctx.Store()
			if err != nil {
				return err
			}
			orch := analysis.New(store, nil, nil, &ctx.Settings.Analysis)
			res, err := orch.Rescore(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Rescored %d tracks, %d failed\n", res.Rescored, res.Failed)
			return err
		},
	}
}
