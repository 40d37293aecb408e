package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/cmd/analyze"
	"github.com/lexicone42/setbreak-sub000/cmd/calibrate"
	"github.com/lexicone42/setbreak-sub000/cmd/rescore"
	"github.com/lexicone42/setbreak-sub000/cmd/scan"
	"github.com/lexicone42/setbreak-sub000/cmd/show"
	"github.com/lexicone42/setbreak-sub000/cmd/stats"
	"github.com/lexicone42/setbreak-sub000/cmd/top"
	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// flagKeys maps config keys to the flags that override them. Flags not
// defined on the running command are skipped.
var flagKeys = map[string]string{
	"debug":                "debug",
	"database.sqlite.path": "db",
	"analysis.workers":     "jobs",
	"decoder.ffmpegpath":   "ffmpeg",
	"metrics.enabled":      "metrics",
	"metrics.listen":       "metrics-listen",
}

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           conf.AppName,
		Short:         "Score a live concert library by how its jams feel",
		Version:       fmt.Sprintf("%s (built %s)", ctx.Build.GetVersion(), ctx.Build.GetBuildDate()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &configFile)

	subcommands := []*cobra.Command{
		scan.Command(ctx),
		analyze.Command(ctx),
		rescore.Command(ctx),
		calibrate.Command(ctx),
		top.Command(ctx),
		show.Command(ctx),
		stats.Command(ctx),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return initialize(cmd, ctx, configFile)
	}
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return ctx.Close()
	}

	return rootCmd
}

// initialize loads configuration, then sets up logging and telemetry. It
// runs after flags are parsed so flag values win over the config file.
func initialize(cmd *cobra.Command, ctx *app.Context, configFile string) error {
	bindings := make([]conf.FlagBinding, 0, len(flagKeys))
	for key, name := range flagKeys {
		bindings = append(bindings, conf.FlagBinding{Key: key, Flag: cmd.Flags().Lookup(name)})
	}

	settings, err := conf.Load(configFile, bindings...)
	if err != nil {
		return err
	}
	ctx.Settings = settings

	central, err := logger.NewCentralLogger(settings.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, ctx.Build.Release()); err != nil {
			return err
		}
	}

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("config_file", settings.ConfigFile),
		logger.String("database", settings.Database.Type),
		logger.String("version", ctx.Build.GetVersion()))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite library database")
}
