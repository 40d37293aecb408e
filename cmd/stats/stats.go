package stats

import (
	"fmt"
	"io"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/report"
)

// Command creates the stats command.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library and host statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ctx.Store()
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printLibrary(w, st)
			printHost(w, ctx.Settings.Analysis.Workers)
			return nil
		},
	}
}

func printLibrary(w io.Writer, st *datastore.LibraryStats) {
	fmt.Fprint(w, report.KeyValues("Library", [][2]string{
		{"Total tracks", report.FormatCount(st.TotalTracks)},
		{"Analyzed tracks", report.FormatCount(st.AnalyzedTracks)},
		{"Total duration", report.FormatHours(st.TotalHours)},
	}))
	if len(st.Formats) > 0 {
		fmt.Fprint(w, countTable("Formats", "Format", st.Formats))
	}
	if len(st.Bands) > 0 {
		fmt.Fprint(w, countTable("Bands", "Band", st.Bands))
	}
}

func countTable(title, label string, counts []datastore.NamedCount) string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Name, report.FormatCount(c.Count)}
	}
	return report.Table{Title: title, Headers: []string{label, "Tracks"}, Rows: rows, Numeric: []int{1}}.Render()
}

func printHost(w io.Writer, workers int) {
	pairs := [][2]string{
		{"CPU", conf.CPUDescription()},
		{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
		{"Analysis workers", fmt.Sprint(workers)},
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		pairs = append(pairs,
			[2]string{"Memory total", report.FormatBytes(vm.Total)},
			[2]string{"Memory available", report.FormatBytes(vm.Available)})
	}
	fmt.Fprint(w, report.KeyValues("Host", pairs))
}
