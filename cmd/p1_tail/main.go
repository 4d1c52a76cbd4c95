// P1 Tail follows a forwarder's live feed and prints every reading as JSON,
// or as a one-line summary with -summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/p1_forwarder/pkg/livefeed"
	"github.com/NotCoffee418/p1_forwarder/pkg/logging"
	"github.com/NotCoffee418/p1_forwarder/pkg/meterutils"
	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

func main() {
	defaultHost := os.Getenv("P1_FORWARDER_API_HOST")
	if defaultHost == "" {
		defaultHost = "localhost:9039"
	}
	host := flag.String("host", defaultHost, "live feed host:port")
	summary := flag.Bool("summary", false, "print a one-line summary instead of JSON")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := livefeed.StartListener(ctx, *host, logger, func(reading *types.Reading) {
		if *summary {
			fmt.Println(meterutils.Summary(reading))
			return
		}
		fmt.Println(string(reading.ToJsonBytes()))
	})
	if err != nil {
		logger.Error("Listener stopped", "error", err)
		stop()
		os.Exit(1)
	}
}
