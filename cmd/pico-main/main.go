//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"pulsecode-go/bus"
	"pulsecode-go/platform"
	"pulsecode-go/services/bridge"
	"pulsecode-go/services/config"
	"pulsecode-go/services/control"
	"pulsecode-go/services/heartbeat"
	"pulsecode-go/services/power"
	"pulsecode-go/services/pulsemon"
)

func main() {
	// Give the USB console a moment to attach.
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	println("Info: main: bootstrapping bus")
	b := bus.NewBus(8)

	pins := platform.DefaultPinFactory()
	buses := platform.DefaultI2CFactory()

	println("Info: main: starting services")
	go pulsemon.New(nil).Start(ctx, b.NewConnection("pulsemon"), pins)
	go power.New(buses).Start(ctx, b.NewConnection("power"))
	go control.New().Start(ctx, b.NewConnection("control"))
	go bridge.Start(ctx, b.NewConnection("bridge"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

	config.New(config.PicoDefault()).Start(ctx, b.NewConnection("config"))

	select {}
}
