package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/scanner"
)

// Command creates the scan command, which registers audio files found
// under the given directories.
func Command(ctx *app.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scan <dir>...",
		Short: "Register audio files in the library",
		Long: `Walk the given directories and register every supported audio file.
Band and show date are parsed from the path. Files whose size and
modification time are unchanged since the last scan are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.Store()
			if err != nil {
				return err
			}
			s, err := scanner.New(store, &ctx.Settings.Scanner)
			if err != nil {
				return err
			}
			res, err := s.Scan(cmd.Context(), args, force)
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files: %d registered, %d unchanged, %d errors\n",
				res.Scanned, res.Upserted, res.Skipped, res.Errors)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-register files even if unchanged")

	return cmd
}
