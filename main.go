// main is the entry point for the xrays CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/xrays/cmd"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/iocache"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute(ctx)

	stop()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	iocache.CloseCaching()

	if err != nil {
		contract.LogFatal("xrays failed", err)
	}
}
