package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexicone42/setbreak-sub000/cmd"
	"github.com/lexicone42/setbreak-sub000/internal/app"
	"github.com/lexicone42/setbreak-sub000/internal/buildinfo"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// set by -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	// the first signal cancels the run so the current chunk commits; a
	// second one kills the process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	appCtx := app.New(&buildinfo.Context{Version: version, BuildDate: buildDate})
	rootCmd := cmd.RootCommand(appCtx)

	err := rootCmd.ExecuteContext(ctx)

	if cerr := appCtx.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = logger.Global().Flush()
	errors.FlushTelemetry(2 * time.Second)

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
