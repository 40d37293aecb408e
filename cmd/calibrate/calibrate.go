package calibrate

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/calibrate"
	"github.com/lexicone42/setbreak-sub000/internal/report"
)

// Command creates the calibrate command.
func Command(ctx *app.Context) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Remove loudness bias from scores",
		Long: `Regress every score against the median loudness of its show and remove
the linear part of the bias. Run rescore first to start from raw scores;
calibrating twice compounds the correction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ctx.Store()
			if err != nil {
				return err
			}
			res, err := calibrate.New(store, &ctx.Settings.Calibration, nil).
				CalibrateScores(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res, ctx.Settings.Calibration.BetaThreshold, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute slopes without writing scores")

	return cmd
}

func printResult(w io.Writer, res calibrate.Result, threshold float64, dryRun bool) {
	if res.TotalTracks == 0 {
		fmt.Fprintln(w, "No calibration data (need analyzed tracks with loudness and a show date).")
		return
	}

	rows := make([][]string, len(res.Betas))
	for i, b := range res.Betas {
		rows[i] = []string{b.Name, fmt.Sprintf("%+.4f", b.Value), direction(b.Value, threshold)}
	}
	fmt.Fprint(w, report.Table{
		Title: fmt.Sprintf("Calibration: %s tracks, corpus median %.1f LUFS",
			report.FormatCount(int64(res.TotalTracks)), res.CorpusMedianLUFS),
		Headers: []string{"Score", "Beta", "Effect"},
		Rows:    rows,
		Numeric: []int{1},
	}.Render())

	if dryRun {
		fmt.Fprintln(w, "Dry run, no changes written.")
		return
	}
	fmt.Fprintf(w, "Calibrated %d tracks, %d without a show date\n", res.Calibrated, res.SkippedNoShow)
}

func direction(beta, threshold float64) string {
	switch {
	case beta != 0 && beta >= threshold:
		return "louder tapes score higher, corrected"
	case beta != 0 && beta <= -threshold:
		return "quieter tapes score higher, corrected"
	default:
		return "negligible"
	}
}
