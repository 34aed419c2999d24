package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/ws"
	"github.com/Sarava33/snow-globe-interactive-art/internal/simulate"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	cfg := &simulate.Config{}
	var (
		logFile string
		cbor    bool
	)

	fs := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	fs.StringVarP(&cfg.URL, "url", "u", "ws://localhost:3000/ws", "websocket URL of the relay")
	fs.BoolVar(&cfg.Discover, "discover", false, "find the relay over mDNS instead of --url")
	fs.IntVarP(&cfg.Controllers, "controllers", "c", simulate.DefaultControllers, "number of simulated phones")
	fs.IntVarP(&cfg.Displays, "displays", "d", simulate.DefaultDisplays, "number of simulated screens")
	fs.IntVarP(&cfg.Shakes, "shakes", "s", simulate.DefaultShakes, "shakes sent by each phone")
	fs.DurationVar(&cfg.ShakeInterval, "shake-interval", simulate.DefaultShakeInterval, "spacing between shakes of one phone")
	fs.IntVar(&cfg.MotionPerShake, "motion", simulate.DefaultMotionPerShake, "motion samples sent before each shake")
	fs.DurationVar(&cfg.DialTimeout, "timeout", simulate.DefaultDialTimeout, "connect timeout")
	fs.DurationVar(&cfg.Settle, "settle", simulate.DefaultSettle, "wait for broadcasts before hanging up")
	fs.BoolVar(&cbor, "cbor", false, "use the binary CBOR codec")
	fs.StringVar(&logFile, "log", "", "also write log lines to this file")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every received frame")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if cbor {
		cfg.Subprotocol = ws.SubprotocolCBOR
	}

	closer, err := simulate.SetupLogging(logFile, cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to setup logging:", err)
		return 1
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	if _, err := simulate.Run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Simulation failed:", err)
		return 1
	}
	return 0
}
