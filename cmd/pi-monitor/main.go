//go:build linux && !tinygo

// Command pi-monitor runs the monitor on a Linux SBC: the pulse input comes
// from the GPIO character device and telemetry goes out over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pulsecode-go/bus"
	"pulsecode-go/platform/linuxcdev"
	"pulsecode-go/services/bridge"
	"pulsecode-go/services/config"
	"pulsecode-go/services/control"
	"pulsecode-go/services/pulsemon"
	"pulsecode-go/types"
)

func main() {
	chip := flag.String("chip", "gpiochip0", "GPIO chip name")
	pin := flag.Int("pin", 17, "pulse input line offset")
	broker := flag.String("broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	cfgPath := flag.String("config", "", "optional YAML device config (overrides flags)")
	flag.Parse()

	pins, err := linuxcdev.NewPinFactory(*chip)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pi-monitor:", err)
		os.Exit(1)
	}
	defer pins.Close()

	cfg := config.DeviceConfig{
		Pulsemon: &types.PulseConfig{Pin: *pin},
	}
	if *broker != "" {
		cfg.Bridge = &bridge.Config{
			Transport: bridge.TransportConfig{
				Type: "mqtt",
				MQTT: &bridge.MQTTConfig{Broker: *broker, ClientID: "pi-monitor"},
			},
			Prefix: "pulsecode",
		}
	}
	if *cfgPath != "" {
		loaded, err := config.LoadFile(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pi-monitor:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(16)
	go pulsemon.New(nil).Start(ctx, b.NewConnection("pulsemon"), pins)
	go control.New().Start(ctx, b.NewConnection("control"))
	go bridge.Start(ctx, b.NewConnection("bridge"))

	config.New(cfg).Start(ctx, b.NewConnection("config"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("pi-monitor: shutting down")
}
