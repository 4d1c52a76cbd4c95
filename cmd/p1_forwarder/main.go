// P1 Forwarder reads DSMR telegrams from the meter's P1 port and forwards the
// readings to a remote collector.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/NotCoffee418/p1_forwarder/pkg/config"
	"github.com/NotCoffee418/p1_forwarder/pkg/delivery"
	"github.com/NotCoffee418/p1_forwarder/pkg/livefeed"
	"github.com/NotCoffee418/p1_forwarder/pkg/logging"
	"github.com/NotCoffee418/p1_forwarder/pkg/pathing"
	"github.com/NotCoffee418/p1_forwarder/pkg/port_reader"
	"github.com/NotCoffee418/p1_forwarder/pkg/readingqueue"
	"github.com/NotCoffee418/p1_forwarder/pkg/token"
	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "config file (default "+pathing.GetConfigPath()+")")
	flag.Parse()

	if _, err := config.LoadForwarderConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.ActiveForwarderConfig
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Forwarder stopped", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Forwarder stopped")
}

func run(ctx context.Context, cfg *config.ForwarderConfig, logger *slog.Logger) error {
	dialer, err := port_reader.NewDialer(cfg.Serial.Driver, cfg.Serial.Port)
	if err != nil {
		return err
	}

	queue := readingqueue.New()
	tokens := token.NewCache(token.Config{
		URL:          cfg.Token.URL,
		ClientID:     cfg.Token.ClientID,
		ClientSecret: cfg.Token.ClientSecret,
		Scope:        cfg.Token.Scope,
	}, logging.Component(logger, "token"))
	worker := delivery.NewWorker(delivery.Config{
		URL:              cfg.Send.URL,
		Interval:         cfg.Send.Interval(),
		Timeout:          cfg.Send.Timeout(),
		RequeueOnFailure: cfg.Send.RequeueOnFailure,
		RequeueCap:       cfg.Send.RequeueCap,
	}, queue, tokens, logging.Component(logger, "delivery"))
	reader := port_reader.NewP1Reader(dialer, logging.Component(logger, "serial"))

	if err := reader.Open(ctx); err != nil {
		return err
	}
	logger.Info("Connected to P1 port", "port", cfg.Serial.Port, "driver", cfg.Serial.Driver)
	sdnotify(logger, daemon.SdNotifyReady)

	g, gctx := errgroup.WithContext(ctx)

	var hub *livefeed.Hub
	if cfg.API.ListenAddress != "" {
		hub = livefeed.NewHub(logging.Component(logger, "livefeed"))
		g.Go(func() error {
			return hub.Run(gctx)
		})
		g.Go(func() error {
			return livefeed.Serve(gctx, cfg.API.ListenAddress, hub, logging.Component(logger, "livefeed"))
		})
	}

	g.Go(func() error {
		return reader.StartReading(gctx, func(reading *types.Reading) {
			queue.Append(reading)
			if hub != nil {
				hub.Broadcast(reading)
			}
		})
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	return g.Wait()
}

// Outside systemd this is a no-op.
func sdnotify(logger *slog.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.Warn("sd_notify failed", "state", state, "error", err)
	}
}
