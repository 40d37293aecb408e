package analyze

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/analysis"
	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/engine/dsp"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
	"github.com/lexicone42/setbreak-sub000/internal/observability"
)

// Command creates the analyze command.
func Command(ctx *app.Context) *cobra.Command {
	var opts analysis.Options

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze and score pending tracks",
		Long: `Decode, analyze and score every track without an analysis, or every
track with --force. Work is committed one chunk at a time, so an
interrupted run resumes where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, ctx, opts)
		},
	}

	setupFlags(cmd, &opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *analysis.Options) {
	cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default from CPU cores)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Re-analyze tracks that already have scores")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Only analyze paths containing this text (case insensitive)")
	cmd.Flags().String("ffmpeg", "", "Path to the ffmpeg binary")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics while analyzing")
	cmd.Flags().String("metrics-listen", "", "Metrics listen address")
}

func run(cmd *cobra.Command, ctx *app.Context, opts analysis.Options) error {
	settings := ctx.Settings
	log := analysis.GetLogger()

	store, err := ctx.Store()
	if err != nil {
		return err
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(&settings.Metrics, m)
		if err != nil {
			return err
		}
		if err := endpoint.Start(); err != nil {
			return err
		}
		defer endpoint.Stop()
		log.Info("serving metrics", logger.String("addr", endpoint.Addr()))

		store.SetMetrics(m.Datastore)
		defer store.SetMetrics(nil)
	}

	orch := analysis.New(store,
		decoder.New(settings.Decoder),
		dsp.New(),
		&settings.Analysis,
		analysis.WithMetrics(m.Pipeline))

	opts.Workers = settings.Analysis.Workers
	res, err := orch.AnalyzeTracks(cmd.Context(), opts)
	fmt.Fprintf(cmd.OutOrStdout(), "Analyzed %d tracks, %d failed\n", res.Analyzed, res.Failed)
	return err
}
