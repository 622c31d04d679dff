// Command joybus-monitor prints the controller reports a board running the
// n64input firmware writes to its USB serial port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/picohal/pio/internal/monitor"
	"github.com/picohal/pio/rp2-pio/joybus"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", "", "serial device path, overrides the configuration")
)

func main() {
	flag.Parse()

	cfg := monitor.Default()
	if *configPath != "" {
		var err error
		cfg, err = monitor.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if err := monitor.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	port, err := monitor.OpenSerial(cfg.Serial)
	if err != nil {
		log.Error("open failed", "err", err)
		os.Exit(1)
	}
	defer port.Close()
	log.Info("monitoring", "device", cfg.Serial.Device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := monitor.New(cfg.Monitor, log, printReport)
	if err := m.Run(ctx, port); err != nil && ctx.Err() == nil {
		log.Error("read failed", "err", err)
		os.Exit(1)
	}
}

func printReport(r joybus.Report) {
	if !r.Connected {
		fmt.Println("no controller")
		return
	}
	rumble := "-"
	if r.RumbleReady {
		rumble = "rumble"
	}
	fmt.Printf("id=%#04x status=%#02x x=%4d y=%4d %-6s %s\n",
		r.ID, uint8(r.Status), r.X, r.Y, rumble, r.Buttons)
}
