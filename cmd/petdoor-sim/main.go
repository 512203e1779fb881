// petdoor-sim runs a simulated Power Pet Door on TCP.
//
// It speaks the door's JSON protocol well enough to develop and test the
// bridge without hardware:
//
//	petdoor-sim -listen 127.0.0.1:3000 -pet-every 2m
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/config"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/simulator"
)

var version = "dev"

// options are the command-line settings.
type options struct {
	listen   string
	fast     bool
	battery  int
	petEvery time.Duration
	logLevel string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("petdoor-sim", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.listen, "listen", "127.0.0.1:3000", "address to listen on")
	fs.BoolVar(&o.fast, "fast", false, "use test timings for door movement")
	fs.IntVar(&o.battery, "battery", 100, "initial battery percentage")
	fs.DurationVar(&o.petEvery, "pet-every", 0, "simulate a pet at the inside sensor this often (0 disables)")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.battery < 0 || o.battery > 100 {
		err := fmt.Errorf("battery must be between 0 and 100")
		fmt.Fprintln(output, err)
		return o, err
	}
	return o, nil
}

func run(ctx context.Context, o options) error {
	log := logging.New(config.LoggingConfig{Level: o.logLevel, Format: "text", Output: "stderr"}, version).
		Component("simulator")

	timing := simulator.DefaultTiming()
	if o.fast {
		timing = simulator.FastTiming()
	}
	state := simulator.DefaultState()
	state.BatteryPercent = o.battery

	srv := simulator.New(simulator.Config{Timing: timing, State: &state, Logger: log})
	if err := srv.Start(o.listen); err != nil {
		return fmt.Errorf("starting simulator: %w", err)
	}
	defer srv.Close()
	log.Info("simulated door listening", "address", srv.Addr())

	var pets <-chan time.Time
	if o.petEvery > 0 {
		ticker := time.NewTicker(o.petEvery)
		defer ticker.Stop()
		pets = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-pets:
			log.Info("pet at inside sensor", "accepted", srv.TriggerSensor(protocol.FieldInside))
		}
	}
}
