//go:build !tinygo

// Command hostsim runs the full monitoring stack on a host: the generator
// drives a software pin straight into the monitor, so the whole pipeline can
// be watched without hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pulsecode-go/bus"
	"pulsecode-go/platform"
	"pulsecode-go/services/config"
	"pulsecode-go/services/control"
	"pulsecode-go/services/pulsegen"
	"pulsecode-go/services/pulsemon"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML device config")
	flag.Parse()

	cfg := config.HostSimDefault()
	if *cfgPath != "" {
		loaded, err := config.LoadFile(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hostsim:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	pins := platform.NewFakePinFactory()

	go pulsemon.New(nil).Start(ctx, b.NewConnection("pulsemon"), pins)
	go pulsegen.New(pulsegen.NewPinDriver(pins)).Start(ctx, b.NewConnection("pulsegen"))
	go control.New().Start(ctx, b.NewConnection("control"))

	config.New(cfg).Start(ctx, b.NewConnection("config"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("hostsim: shutting down")
}
